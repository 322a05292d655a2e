package storedquery

import (
	"github.com/beevik/etree"
)

const (
	nsWFS = "http://www.opengis.net/wfs/2.0"
	nsOWS = "http://www.opengis.net/ows/1.1"
)

// ListStoredQueries renders the wfs:ListStoredQueriesResponse document: one
// wfs:StoredQuery entry per registered definition, title only (no parameter
// detail — that's DescribeStoredQueries' job).
func ListStoredQueries(defs []Definition) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("wfs:ListStoredQueriesResponse")
	root.CreateAttr("xmlns:wfs", nsWFS)

	for _, def := range defs {
		sq := root.CreateElement("wfs:StoredQuery")
		sq.CreateAttr("id", def.ID)
		sq.CreateElement("wfs:Title").SetText(def.Title)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// DescribeStoredQueries renders the wfs:DescribeStoredQueriesResponse
// document for defs, with each declared Parameter.
func DescribeStoredQueries(defs []Definition) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("wfs:DescribeStoredQueriesResponse")
	root.CreateAttr("xmlns:wfs", nsWFS)
	root.CreateAttr("xmlns:ows", nsOWS)

	for _, def := range defs {
		sqd := root.CreateElement("wfs:StoredQueryDescription")
		sqd.CreateAttr("id", def.ID)
		sqd.CreateElement("wfs:Title").SetText(def.Title)
		if def.Abstract != "" {
			sqd.CreateElement("wfs:Abstract").SetText(def.Abstract)
		}
		for _, p := range def.Parameters {
			param := sqd.CreateElement("wfs:Parameter")
			param.CreateAttr("name", p.Name)
			param.CreateAttr("type", string(p.Type))
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}
