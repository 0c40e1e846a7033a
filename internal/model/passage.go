package model

// Passage is a retrieved chunk of a source document.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Page    *int    `json:"page"`
	URL     *string `json:"url"`
}

// Citation projects the metadata of a retrieved passage.
type Citation struct {
	Source string  `json:"source"`
	Page   *int    `json:"page"`
	URL    *string `json:"url"`
}

func (p Passage) Citation() Citation {
	return Citation{
		Source: p.Source,
		Page:   p.Page,
		URL:    p.URL,
	}
}
