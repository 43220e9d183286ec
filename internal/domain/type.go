package domain

import "encoding/xml"

type Type struct {
	XMLName xml.Name `json:"-" xml:"type"`
	ID      int64    `json:"id" xml:"id"`
	Name    string   `json:"name" xml:"name"`
}

type Types struct {
	XMLName xml.Name `json:"-" xml:"types"`
	Types   []*Type  `json:"types" xml:"type"`
}
