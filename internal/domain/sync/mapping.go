package sync

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"saverr/internal/domain/transaction"
	"saverr/internal/infrastructure/ledger"
)

// categoryStyle is the fixed (icon, color) presentation for a category.
type categoryStyle struct {
	icon  string
	color string
}

// categoryStyles maps upper-cased category names to their presentation.
// Unmapped categories fall back to defaultStyle.
var categoryStyles = map[string]categoryStyle{
	"FOOD_AND_DRINK":            {"fork.knife", "#FF6B6B"},
	"TRANSPORTATION":            {"car.fill", "#4ECDC4"},
	"SHOPPING":                  {"bag.fill", "#45B7D1"},
	"ENTERTAINMENT":             {"tv.fill", "#96CEB4"},
	"TRAVEL":                    {"airplane", "#FFEAA7"},
	"HEALTHCARE":                {"heart.fill", "#DDA0DD"},
	"PERSONAL_CARE":             {"person.fill", "#98D8C8"},
	"GENERAL_SERVICES":          {"wrench.fill", "#F7DC6F"},
	"GOVERNMENT_AND_NON_PROFIT": {"building.columns.fill", "#BB8FCE"},
	"TRANSFER_IN":               {"arrow.down.circle.fill", "#82E0AA"},
	"TRANSFER_OUT":              {"arrow.up.circle.fill", "#F1948A"},
	"INCOME":                    {"dollarsign.circle.fill", "#82E0AA"},
	"LOAN_PAYMENTS":             {"creditcard.fill", "#F5B041"},
	"BANK_FEES":                 {"exclamationmark.circle.fill", "#E74C3C"},
	"RENT_AND_UTILITIES":        {"house.fill", "#5DADE2"},
}

var defaultStyle = categoryStyle{"questionmark.circle.fill", "#95A5A6"}

var titleCaser = cases.Title(language.English)

// resolveCategory picks the category name for a record: the fine-grained
// primary category when present, else the first legacy category entry, else
// "Uncategorized". The detailed sub-category rides along when available.
func resolveCategory(r ledger.Transaction) (name, detailed string) {
	if r.PFC != nil && r.PFC.Primary != "" {
		return r.PFC.Primary, r.PFC.Detailed
	}
	if len(r.Category) > 0 && r.Category[0] != "" {
		return r.Category[0], ""
	}
	return "Uncategorized", ""
}

// displayName turns an upstream category identifier into its display form:
// underscores become spaces and each word is title-cased.
func displayName(category string) string {
	return titleCaser.String(strings.ReplaceAll(category, "_", " "))
}

// MapRemoteTransaction converts an aggregator record into the internal
// schema. The aggregator signs amounts with debits positive; internally the
// magnitude and an explicit debit flag are stored instead. Optional fields
// stay absent rather than defaulting to empty strings, except the
// description, which falls back to "Unknown Transaction".
func MapRemoteTransaction(r ledger.Transaction, userID, accountID, now string) transaction.Transaction {
	categoryName, categoryDetailed := resolveCategory(r)

	style, ok := categoryStyles[strings.ToUpper(categoryName)]
	if !ok {
		style = defaultStyle
	}

	description := r.Name
	if description == "" {
		description = "Unknown Transaction"
	}

	txn := transaction.Transaction{
		ID:               r.TransactionID,
		UserID:           userID,
		AccountID:        accountID,
		ExternalID:       r.TransactionID,
		Amount:           abs(r.Amount),
		IsDebit:          r.Amount > 0,
		Description:      description,
		MerchantName:     r.MerchantName,
		Date:             r.Date,
		Datetime:         r.Datetime,
		Pending:          r.Pending,
		CategoryName:     displayName(categoryName),
		CategoryDetailed: categoryDetailed,
		CategoryIcon:     style.icon,
		CategoryColor:    style.color,
		PaymentChannel:   r.PaymentChannel,
		CreatedAt:        now,
		SyncedAt:         now,
	}

	if r.Location != nil {
		txn.Location = &transaction.Location{
			City:    r.Location.City,
			Region:  r.Location.Region,
			Country: r.Location.Country,
		}
	}

	return txn
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
