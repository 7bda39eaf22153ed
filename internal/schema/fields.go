// Package schema defines the canonical field vocabulary for Authorized Buyers
// performance-report exports.
//
// The reporting console labels columns differently depending on how the report
// was configured (and sometimes prefixes headers with '#'), so every canonical
// field carries an ordered list of accepted literal spellings. Resolution is
// exact-string, first match wins.
package schema

// FieldKind classifies a canonical field for parsing and remediation text.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindInt
	KindMoney
	KindBool
)

// Field describes one canonical column of the performance report.
type Field struct {
	Name    string   // canonical name, e.g. "billing_id"
	Aliases []string // accepted literal headers, in priority order
	Kind    FieldKind
	// Dimension marks identity fields (eligible for the row key).
	// Metric and descriptive fields are never part of the key.
	Dimension bool
	// ReportLabel is the exact dimension/metric name as it appears in the
	// report builder, used to generate remediation instructions.
	ReportLabel string
	// Metric distinguishes report metrics from dimensions in remediation text.
	Metric bool
}

// Required lists the canonical fields without which an import is rejected
// outright. Order is stable and user-visible (validation results, remediation).
var Required = []Field{
	{Name: "day", Aliases: []string{"#Day", "Day", "#Date", "Date"}, Kind: KindDate, Dimension: true, ReportLabel: "Day (under Time dimensions)"},
	{Name: "creative_id", Aliases: []string{"Creative ID", "#Creative ID"}, Kind: KindText, Dimension: true, ReportLabel: "Creative ID"},
	{Name: "billing_id", Aliases: []string{"Billing ID", "#Billing ID"}, Kind: KindText, Dimension: true, ReportLabel: "Billing ID"},
	{Name: "creative_size", Aliases: []string{"Creative size", "#Creative size"}, Kind: KindText, Dimension: true, ReportLabel: "Creative size"},
	{Name: "reached_queries", Aliases: []string{"Reached queries", "#Reached queries"}, Kind: KindInt, Metric: true, ReportLabel: "Reached queries"},
	{Name: "impressions", Aliases: []string{"Impressions", "#Impressions"}, Kind: KindInt, Metric: true, ReportLabel: "Impressions"},
}

// Optional lists fields that are imported when present and skipped without
// complaint when absent.
var Optional = []Field{
	{Name: "hour", Aliases: []string{"Hour", "#Hour"}, Kind: KindInt, Dimension: true, ReportLabel: "Hour (under Time dimensions)"},
	{Name: "creative_format", Aliases: []string{"Creative format", "#Creative format"}, Kind: KindText, ReportLabel: "Creative format"},
	{Name: "country", Aliases: []string{"Country", "#Country"}, Kind: KindText, Dimension: true, ReportLabel: "Country"},
	{Name: "platform", Aliases: []string{"Platform", "#Platform"}, Kind: KindText, Dimension: true, ReportLabel: "Platform"},
	{Name: "environment", Aliases: []string{"Environment", "#Environment"}, Kind: KindText, Dimension: true, ReportLabel: "Environment"},
	{Name: "app_id", Aliases: []string{"Mobile app ID", "#Mobile app ID"}, Kind: KindText, Dimension: true, ReportLabel: "Mobile app ID"},
	{Name: "app_name", Aliases: []string{"Mobile app name", "#Mobile app name"}, Kind: KindText, ReportLabel: "Mobile app name"},
	{Name: "publisher_id", Aliases: []string{"Publisher ID", "#Publisher ID"}, Kind: KindText, Dimension: true, ReportLabel: "Publisher ID"},
	{Name: "publisher_name", Aliases: []string{"Publisher name", "#Publisher name"}, Kind: KindText, ReportLabel: "Publisher name"},
	{Name: "publisher_domain", Aliases: []string{"Publisher domain", "#Publisher domain"}, Kind: KindText, ReportLabel: "Publisher domain"},
	{Name: "deal_id", Aliases: []string{"Deal ID", "#Deal ID"}, Kind: KindText, Dimension: true, ReportLabel: "Deal ID"},
	{Name: "deal_name", Aliases: []string{"Deal name", "#Deal name"}, Kind: KindText, ReportLabel: "Deal name"},
	{Name: "transaction_type", Aliases: []string{"Transaction type", "#Transaction type"}, Kind: KindText, ReportLabel: "Transaction type"},
	{Name: "advertiser", Aliases: []string{"Advertiser", "#Advertiser"}, Kind: KindText, Dimension: true, ReportLabel: "Advertiser"},
	{Name: "buyer_account_id", Aliases: []string{"Buyer account ID", "#Buyer account ID"}, Kind: KindText, Dimension: true, ReportLabel: "Buyer account ID"},
	{Name: "buyer_account_name", Aliases: []string{"Buyer account name", "#Buyer account name"}, Kind: KindText, ReportLabel: "Buyer account name"},
	{Name: "clicks", Aliases: []string{"Clicks", "#Clicks"}, Kind: KindInt, Metric: true, ReportLabel: "Clicks"},
	{Name: "spend", Aliases: []string{"Spend (bidder currency)", "Spend _buyer currency_", "Spend (buyer currency)", "#Spend"}, Kind: KindMoney, Metric: true, ReportLabel: "Spend"},
	{Name: "video_starts", Aliases: []string{"Video starts", "#Video starts"}, Kind: KindInt, Metric: true, ReportLabel: "Video starts"},
	{Name: "video_first_quartile", Aliases: []string{"Video reached first quartile"}, Kind: KindInt, Metric: true, ReportLabel: "Video reached first quartile"},
	{Name: "video_midpoint", Aliases: []string{"Video reached midpoint"}, Kind: KindInt, Metric: true, ReportLabel: "Video reached midpoint"},
	{Name: "video_third_quartile", Aliases: []string{"Video reached third quartile"}, Kind: KindInt, Metric: true, ReportLabel: "Video reached third quartile"},
	{Name: "video_completions", Aliases: []string{"Video completions", "#Video completions"}, Kind: KindInt, Metric: true, ReportLabel: "Video completions"},
	{Name: "vast_errors", Aliases: []string{"VAST error count", "#VAST error count"}, Kind: KindInt, Metric: true, ReportLabel: "VAST error count"},
	{Name: "engaged_views", Aliases: []string{"Engaged views"}, Kind: KindInt, Metric: true, ReportLabel: "Engaged views"},
	{Name: "active_view_measurable", Aliases: []string{"Active view measurable"}, Kind: KindInt, Metric: true, ReportLabel: "Active view measurable"},
	{Name: "active_view_viewable", Aliases: []string{"Active view viewable"}, Kind: KindInt, Metric: true, ReportLabel: "Active view viewable"},
	{Name: "gma_sdk", Aliases: []string{"GMA SDK"}, Kind: KindBool, ReportLabel: "GMA SDK"},
	{Name: "buyer_sdk", Aliases: []string{"Buyer SDK"}, Kind: KindBool, ReportLabel: "Buyer SDK"},
}

// KeyFields is the ordered dimension list that forms the row fingerprint.
// Fields absent from this list are aggregated away on re-import: two rows that
// differ only in an excluded field share a key and the later one wins.
//
// Treat this as configuration. Whether advertiser and deal_id are true identity
// dimensions (rather than descriptive) is still under review with the data
// owner; changing this list changes what counts as "the same row".
var KeyFields = []string{
	"day",
	"hour",
	"creative_id",
	"billing_id",
	"creative_size",
	"country",
	"platform",
	"environment",
	"app_id",
	"publisher_id",
	"deal_id",
	"advertiser",
	"buyer_account_id",
}

// ByName returns the field definition for a canonical name, searching required
// fields first.
func ByName(name string) (Field, bool) {
	for _, f := range Required {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range Optional {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
