package model

// Record field names. Collectors key their storage on these, so they are
// part of the wire format.
const (
	FieldAddr             = "addr"
	FieldIP               = "ip"
	FieldPort             = "port"
	FieldProtocol         = "protocol"
	FieldTitle            = "title"
	FieldFID              = "fid"
	FieldCountry          = "country"
	FieldRegion           = "region"
	FieldCity             = "city"
	FieldASN              = "asn"
	FieldOrg              = "org"
	FieldDate             = "date"
	FieldProduct          = "product"
	FieldHeader           = "header"
	FieldHTTPStatus       = "http_status"
	FieldHeaderHash       = "header_hash"
	FieldBannerHash       = "banner_hash"
	FieldSearchQuery      = "search_query"
	FieldTotalResults     = "total_results"
	FieldUniqueIPs        = "unique_ips"
	FieldQueryTime        = "query_time"
	FieldSearchType       = "search_type"
	FieldHoneypotExcluded = "honeypot_excluded"
)

// Record is one extracted result row. It is an open set of named string
// fields; the only required field is FieldAddr.
//
// Records are sent to the collector verbatim, one JSON object per message.
type Record map[string]string

// Addr returns the address field, or "" if absent.
func (r Record) Addr() string {
	return r[FieldAddr]
}

// Valid reports whether the record identifies a resource.
// Records without an address are dropped by the extractor.
func (r Record) Valid() bool {
	return r.Addr() != ""
}

// PageStats holds the page-level statistics that are copied into every
// record extracted from that page.
type PageStats map[string]string

// NewRecord starts a record for the given query, seeded with page stats.
func NewRecord(query string, stats PageStats) Record {
	r := make(Record, len(stats)+8)
	r[FieldSearchQuery] = query
	for k, v := range stats {
		r[k] = v
	}
	return r
}
