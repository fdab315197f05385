package export

// OOXMLパーツのテンプレート。名前空間宣言は各ルート要素に付ける。
const pptxTemplateText = `
{{define "nsP"}}xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"{{end}}

{{define "clrMap"}}bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"{{end}}

{{define "grpSp"}}<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>{{end}}

{{define "[Content_Types].xml"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
<Override PartName="/ppt/presProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"/>
<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>
<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>
<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>
{{- range .Slides}}
<Override PartName="/ppt/slides/slide{{.Index}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>
{{- if .Notes}}
<Override PartName="/ppt/notesSlides/notesSlide{{.Index}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"/>
{{- end}}
{{- end}}
{{- if .HasNotes}}
<Override PartName="/ppt/notesMasters/notesMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"/>
<Override PartName="/ppt/theme/theme2.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>
{{- end}}
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>
</Types>{{end}}

{{define "_rels/.rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>
</Relationships>{{end}}

{{define "docProps/core.xml"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>{{xml .Doc.Title}}</dc:title>
<dc:creator>{{xml .Doc.CompanyName}}</dc:creator>
<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created>
</cp:coreProperties>{{end}}

{{define "docProps/app.xml"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">
<Application>pitchdeck</Application>
<Slides>{{len .Slides}}</Slides>
</Properties>{{end}}

{{define "ppt/presentation.xml"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation {{template "nsP"}} saveSubsetFonts="1">
<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
{{- if .HasNotes}}
<p:notesMasterIdLst><p:notesMasterId r:id="rIdNotesMaster"/></p:notesMasterIdLst>
{{- end}}
{{- if .Slides}}
<p:sldIdLst>{{range .Slides}}<p:sldId id="{{add .Index 255}}" r:id="rId{{add .Index 1}}"/>{{end}}</p:sldIdLst>
{{- end}}
<p:sldSz cx="12192000" cy="6858000"/>
<p:notesSz cx="6858000" cy="9144000"/>
</p:presentation>{{end}}

{{define "ppt/_rels/presentation.xml.rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>
{{- range .Slides}}
<Relationship Id="rId{{add .Index 1}}" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide{{.Index}}.xml"/>
{{- end}}
<Relationship Id="rIdPresProps" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/presProps" Target="presProps.xml"/>
<Relationship Id="rIdTheme" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/>
{{- if .HasNotes}}
<Relationship Id="rIdNotesMaster" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesMaster" Target="notesMasters/notesMaster1.xml"/>
{{- end}}
</Relationships>{{end}}

{{define "ppt/presProps.xml"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentationPr {{template "nsP"}}/>{{end}}

{{define "ppt/slideMasters/slideMaster1.xml"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster {{template "nsP"}}>
<p:cSld><p:bg><p:bgPr><a:solidFill><a:srgbClr val="{{.Theme.Background.Hex}}"/></a:solidFill><a:effectLst/></p:bgPr></p:bg><p:spTree>{{template "grpSp"}}</p:spTree></p:cSld>
<p:clrMap {{template "clrMap"}}/>
<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>
</p:sldMaster>{{end}}

{{define "ppt/slideMasters/_rels/slideMaster1.xml.rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>
</Relationships>{{end}}

{{define "ppt/slideLayouts/slideLayout1.xml"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout {{template "nsP"}} type="blank" preserve="1">
<p:cSld name="Blank"><p:spTree>{{template "grpSp"}}</p:spTree></p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sldLayout>{{end}}

{{define "ppt/slideLayouts/_rels/slideLayout1.xml.rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>
</Relationships>{{end}}

{{define "theme"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="{{xml .Theme.Name}}">
<a:themeElements>
<a:clrScheme name="{{xml .Theme.Name}}">
<a:dk1><a:srgbClr val="{{.Theme.Text.Hex}}"/></a:dk1>
<a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>
<a:dk2><a:srgbClr val="{{.Theme.Primary.Hex}}"/></a:dk2>
<a:lt2><a:srgbClr val="{{.Theme.Background.Hex}}"/></a:lt2>
<a:accent1><a:srgbClr val="{{.Theme.Accent.Hex}}"/></a:accent1>
<a:accent2><a:srgbClr val="{{.Theme.Primary.Hex}}"/></a:accent2>
<a:accent3><a:srgbClr val="{{.Theme.Muted.Hex}}"/></a:accent3>
<a:accent4><a:srgbClr val="70AD47"/></a:accent4>
<a:accent5><a:srgbClr val="FFC000"/></a:accent5>
<a:accent6><a:srgbClr val="5B9BD5"/></a:accent6>
<a:hlink><a:srgbClr val="0563C1"/></a:hlink>
<a:folHlink><a:srgbClr val="954F72"/></a:folHlink>
</a:clrScheme>
<a:fontScheme name="{{xml .Theme.Name}}">
<a:majorFont><a:latin typeface="{{xml .Theme.PPTXFont}}"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>
<a:minorFont><a:latin typeface="{{xml .Theme.PPTXFont}}"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>
</a:fontScheme>
<a:fmtScheme name="{{xml .Theme.Name}}">
<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>
<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>
<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>
<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>
</a:fmtScheme>
</a:themeElements>
<a:objectDefaults/>
<a:extraClrSchemeLst/>
</a:theme>{{end}}

{{define "run"}}<a:r><a:rPr lang="en-US" sz="{{.Size}}"{{if .Bold}} b="1"{{end}}><a:solidFill><a:srgbClr val="{{.Color}}"/></a:solidFill><a:latin typeface="{{xml .Font}}"/></a:rPr><a:t>{{xml .Text}}</a:t></a:r>{{end}}

{{define "slide"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld {{template "nsP"}}>
<p:cSld>
<p:bg><p:bgPr><a:solidFill><a:srgbClr val="{{.Theme.Background.Hex}}"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>
<p:spTree>{{template "grpSp"}}
<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="12192000" cy="1143000"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:solidFill><a:srgbClr val="{{.Theme.Primary.Hex}}"/></a:solidFill><a:ln><a:noFill/></a:ln></p:spPr>
<p:txBody><a:bodyPr wrap="square" lIns="457200" rIns="457200" anchor="ctr"/><a:lstStyle/><a:p>{{template "run" .Slide.TitleRun}}</a:p></p:txBody>
</p:sp>
<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="609600" y="1447800"/><a:ext cx="10972800" cy="4953000"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>
<p:txBody><a:bodyPr wrap="square"><a:normAutofit/></a:bodyPr><a:lstStyle/>
{{- range .Slide.Paragraphs}}
{{- if .Empty}}
<a:p><a:endParaRPr lang="en-US" sz="1200"/></a:p>
{{- else if .Bullet}}
<a:p><a:pPr marL="{{.MarginLeft}}" indent="-285750"><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/></a:pPr>{{template "run" .Run}}</a:p>
{{- else}}
<a:p><a:pPr marL="0" indent="0"><a:buNone/></a:pPr>{{template "run" .Run}}</a:p>
{{- end}}
{{- else}}
<a:p><a:endParaRPr lang="en-US"/></a:p>
{{- end}}
</p:txBody>
</p:sp>
{{- if .Watermark}}
<p:sp><p:nvSpPr><p:cNvPr id="4" name="Watermark"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm rot="19800000"><a:off x="1524000" y="2819400"/><a:ext cx="9144000" cy="1219200"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>
<p:txBody><a:bodyPr wrap="none" anchor="ctr"/><a:lstStyle/><a:p><a:pPr algn="ctr"/><a:r><a:rPr lang="en-US" sz="6000" b="1"><a:solidFill><a:srgbClr val="{{.Theme.Muted.Hex}}"><a:alpha val="25000"/></a:srgbClr></a:solidFill></a:rPr><a:t>{{xml .Watermark}}</a:t></a:r></a:p></p:txBody>
</p:sp>
{{- end}}
</p:spTree>
</p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sld>{{end}}

{{define "slideRels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
{{- if .Slide.Notes}}
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="../notesSlides/notesSlide{{.Slide.Index}}.xml"/>
{{- end}}
</Relationships>{{end}}

{{define "notesPlaceholders"}}<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="381000" y="685800"/><a:ext cx="6096000" cy="3429000"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:sp>
<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="685800" y="4400550"/><a:ext cx="5486400" cy="3600450"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>{{end}}

{{define "ppt/notesMasters/notesMaster1.xml"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notesMaster {{template "nsP"}}>
<p:cSld><p:spTree>{{template "grpSp"}}
{{template "notesPlaceholders"}}<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:endParaRPr lang="en-US"/></a:p></p:txBody></p:sp>
</p:spTree></p:cSld>
<p:clrMap {{template "clrMap"}}/>
</p:notesMaster>{{end}}

{{define "ppt/notesMasters/_rels/notesMaster1.xml.rels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme2.xml"/>
</Relationships>{{end}}

{{define "notesSlide"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes {{template "nsP"}}>
<p:cSld><p:spTree>{{template "grpSp"}}
{{template "notesPlaceholders"}}<p:txBody><a:bodyPr/><a:lstStyle/>
{{- range .Slide.Notes}}
<a:p><a:r><a:rPr lang="en-US"/><a:t>{{xml .}}</a:t></a:r></a:p>
{{- end}}
</p:txBody></p:sp>
</p:spTree></p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:notes>{{end}}

{{define "notesSlideRels"}}<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesMaster" Target="../notesMasters/notesMaster1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="../slides/slide{{.Slide.Index}}.xml"/>
</Relationships>{{end}}
`
