package models

type NewsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code,omitempty"`
	Message      string           `json:"message,omitempty"`
	TotalResults int              `json:"totalResults"`
	Articles     []NewsAPIArticle `json:"articles"`
}

type NewsAPISource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NewsAPIArticle struct {
	Source      NewsAPISource `json:"source"`
	Author      string        `json:"author"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	URLToImage  string        `json:"urlToImage"`
	PublishedAt string        `json:"publishedAt"`
	Content     string        `json:"content"`
}

// IngestionStats describes a freshly fetched batch of articles.
type IngestionStats struct {
	Total      int           `json:"total"`
	Sources    int           `json:"sources"`
	TopSources []SourceCount `json:"top_sources,omitempty"`
	DateRange  *DateRange    `json:"date_range,omitempty"`
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}
