package models

// ListingItem is one product card of a search result page.
type ListingItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
}

// ImageInfo describes one product image element.
type ImageInfo struct {
	Src   string `json:"src"`
	Alt   string `json:"alt,omitempty"`
	Class string `json:"class,omitempty"`
}

// ProductImages holds the main image and the full gallery in page order.
type ProductImages struct {
	Primary *ImageInfo  `json:"primary,omitempty"`
	Gallery []ImageInfo `json:"gallery"`
}

// Review is one customer review. ID is the 1-based position of its container
// on the page.
type Review struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Diagnostics describe a page on which nothing could be extracted, so an
// empty result can be told apart from a failure.
type Diagnostics struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Samples []string `json:"samples,omitempty"`
	Reason  string   `json:"reason"`
}

// PaginationInfo reports how a listing was grown.
type PaginationInfo struct {
	Attempts   int    `json:"attempts"`
	StopReason string `json:"stop_reason"`
	Rendered   int    `json:"rendered"`
}

// SearchResult is the output of a listing search.
type SearchResult struct {
	Query       string         `json:"query"`
	Items       []ListingItem  `json:"items"`
	Pagination  PaginationInfo `json:"pagination"`
	Diagnostics *Diagnostics   `json:"diagnostics,omitempty"`
}

// DetailsResult is the output of a product detail extraction.
type DetailsResult struct {
	Product     string       `json:"product"`
	URL         string       `json:"url,omitempty"`
	Fields      FieldMap     `json:"fields"`
	Passes      int          `json:"passes"`
	Missing     []string     `json:"missing,omitempty"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// ImagesResult is the output of a product image extraction.
type ImagesResult struct {
	Product     string        `json:"product"`
	URL         string        `json:"url,omitempty"`
	Images      ProductImages `json:"images"`
	Diagnostics *Diagnostics  `json:"diagnostics,omitempty"`
}

// ReviewsResult is the output of a product review extraction.
type ReviewsResult struct {
	Product     string       `json:"product"`
	URL         string       `json:"url,omitempty"`
	Reveal      string       `json:"reveal"`
	Reviews     []Review     `json:"reviews"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}
