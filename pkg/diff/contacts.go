package diff

import "github.com/chatsync/b2csync/pkg/models"

// Contacts compares an existing Contact against freshly normalized field
// values and reports what, if anything, changed (spec §4.5.3). Only
// non-identity fields are compared — upstreamId never changes.
func Contacts(existing *models.Contact, next *models.Contact) *Result {
	r := newResult()
	c := &fieldComparer{result: r}

	c.compareString("fullName", &existing.FullName, &next.FullName)
	c.compareString("mobile", existing.Mobile, next.Mobile)
	c.compareString("landline", existing.Landline, next.Landline)
	c.compareString("email", existing.Email, next.Email)
	c.compareString("identification", existing.Identification, next.Identification)
	c.compareString("address", existing.Address, next.Address)
	c.compareString("city", existing.City, next.City)
	c.compareString("country", existing.Country, next.Country)
	c.compareString("company", existing.Company, next.Company)
	c.compareString("merchantId", existing.MerchantID, next.MerchantID)
	c.compareJSON("customAttributes", existing.CustomAttributes, next.CustomAttributes)
	c.compareJSON("tags", tagNames(existing.Tags), tagNames(next.Tags))
	c.compareTime("upstreamCreatedAt", existing.UpstreamCreatedAt, next.UpstreamCreatedAt)
	c.compareTime("upstreamUpdatedAt", existing.UpstreamUpdatedAt, next.UpstreamUpdatedAt)

	return r
}

func tagNames(tags []models.ContactTag) []any {
	out := make([]any, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}
