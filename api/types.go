package api

import "net/url"

// Request holds the options of one API call, parsed from its path and query
type Request struct {
	Definition string
	Queries    url.Values

	RefreshBackend  bool
	Strict          bool
	Nested          bool
	LogResponses    bool
	PrettyPrintJson bool

	EnableTrace bool
}
