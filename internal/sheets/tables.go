package sheets

// Worksheet names and their header rows.
const (
	EngagementRaw      = "Instagram_Engagement_Raw"
	QualifiedLeads     = "Qualified_Leads"
	MarketingTemplates = "Marketing_Templates"
	PostPurchaseLog    = "PostPurchase_Engagement_Log"
	FulfillmentLog     = "Fulfillment_Templates"
	ReviewLog          = "Review_Log"
)

var Headers = map[string][]string{
	EngagementRaw:      {"timestamp", "username", "comment", "likes", "followers"},
	QualifiedLeads:     {"timestamp", "username", "comment", "likes", "followers", "score", "reason"},
	MarketingTemplates: {"timestamp", "username", "channel", "subject", "message", "status"},
	PostPurchaseLog:    {"timestamp", "order_id", "email", "first_name", "products", "total", "status", "email_message_id"},
	FulfillmentLog:     {"timestamp", "order_id", "email", "first_name", "subject", "message", "status", "reviewed_by", "sent_at"},
	ReviewLog:          {"timestamp", "table", "id", "status", "reviewed_by"},
}

// ResettableSheets are cleared by the reset command. Templates and the
// review log are kept as the audit trail.
var ResettableSheets = []string{EngagementRaw, QualifiedLeads, PostPurchaseLog}
