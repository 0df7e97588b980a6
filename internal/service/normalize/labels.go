package normalize

import (
	"strings"

	"FundLens/internal/domain/models"
)

// conceptByTag maps XBRL tags (as the market source reports them, without the
// taxonomy prefix) to canonical concepts. Declarative so coverage grows by
// table edits, and unit-testable without touching orchestration.
var conceptByTag = map[string]string{
	"Revenues": models.ConceptRevenue,
	"RevenueFromContractWithCustomerExcludingAssessedTax": models.ConceptRevenue,
	"RevenueFromContractWithCustomerIncludingAssessedTax": models.ConceptRevenue,
	"SalesRevenueNet":                            models.ConceptRevenue,
	"CostOfRevenue":                              models.ConceptCostOfRevenue,
	"CostOfGoodsAndServicesSold":                 models.ConceptCostOfRevenue,
	"GrossProfit":                                models.ConceptGrossProfit,
	"ResearchAndDevelopmentExpense":              models.ConceptResearchDevelopment,
	"SellingGeneralAndAdministrativeExpense":     models.ConceptSellingGeneralAdmin,
	"OperatingIncomeLoss":                        models.ConceptOperatingIncome,
	"InterestExpense":                            models.ConceptInterestExpense,
	"NetIncomeLoss":                              models.ConceptNetIncome,
	"ProfitLoss":                                 models.ConceptNetIncome,
	"DepreciationDepletionAndAmortization":       models.ConceptDepreciationAmortization,
	"DepreciationAndAmortization":                models.ConceptDepreciationAmortization,
	"ShareBasedCompensation":                     models.ConceptStockBasedCompensation,
	"DeferredIncomeTaxExpenseBenefit":            models.ConceptDeferredTaxes,
	"NetCashProvidedByUsedInOperatingActivities": models.ConceptOperatingCashFlow,
	"PaymentsToAcquirePropertyPlantAndEquipment": models.ConceptCapitalExpenditure,
	"CashAndCashEquivalentsAtCarryingValue":      models.ConceptCashAndEquivalents,
	"MarketableSecuritiesCurrent":                models.ConceptMarketableSecurities,
	"LongTermDebtCurrent":                        models.ConceptShortTermDebt,
	"LongTermDebtNoncurrent":                     models.ConceptLongTermDebt,
	"Assets":                                     models.ConceptTotalAssets,
	"Liabilities":                                models.ConceptTotalLiabilities,
	"StockholdersEquity":                         models.ConceptStockholdersEquity,
	"Goodwill":                                   models.ConceptGoodwill,
	"InventoryNet":                               models.ConceptInventory,
	"AccountsReceivableNetCurrent":               models.ConceptReceivables,
	"CommonStockSharesOutstanding":               models.ConceptSharesOutstanding,
	"EntityCommonStockSharesOutstanding":         models.ConceptSharesOutstanding,
}

// conceptByLabel maps lowercased human statement labels to canonical
// concepts, for sources that carry no XBRL tag on a row.
var conceptByLabel = map[string]string{
	"revenue":                        models.ConceptRevenue,
	"total revenue":                  models.ConceptRevenue,
	"total net sales":                models.ConceptRevenue,
	"net sales":                      models.ConceptRevenue,
	"cost of revenue":                models.ConceptCostOfRevenue,
	"cost of sales":                  models.ConceptCostOfRevenue,
	"cost of goods sold":             models.ConceptCostOfRevenue,
	"gross profit":                   models.ConceptGrossProfit,
	"gross margin":                   models.ConceptGrossProfit,
	"research and development":       models.ConceptResearchDevelopment,
	"selling, general and administrative": models.ConceptSellingGeneralAdmin,
	"operating income":               models.ConceptOperatingIncome,
	"operating income (loss)":        models.ConceptOperatingIncome,
	"interest expense":               models.ConceptInterestExpense,
	"net income":                     models.ConceptNetIncome,
	"net income (loss)":              models.ConceptNetIncome,
	"depreciation and amortization":  models.ConceptDepreciationAmortization,
	"share-based compensation":       models.ConceptStockBasedCompensation,
	"stock-based compensation":       models.ConceptStockBasedCompensation,
	"deferred income taxes":          models.ConceptDeferredTaxes,
	"cash generated by operating activities": models.ConceptOperatingCashFlow,
	"net cash provided by operating activities": models.ConceptOperatingCashFlow,
	"cash and cash equivalents":      models.ConceptCashAndEquivalents,
	"marketable securities":          models.ConceptMarketableSecurities,
	"total assets":                   models.ConceptTotalAssets,
	"total liabilities":              models.ConceptTotalLiabilities,
	"total shareholders' equity":     models.ConceptStockholdersEquity,
	"total stockholders' equity":     models.ConceptStockholdersEquity,
	"goodwill":                       models.ConceptGoodwill,
	"inventories":                    models.ConceptInventory,
	"accounts receivable, net":       models.ConceptReceivables,
}

// unitScale converts a source unit to whole currency units. Units outside the
// table pass through at scale 1; the original unit string is always retained
// as metadata for audit.
var unitScale = map[string]float64{
	"usd":       1,
	"USD":       1,
	"usd-m":     1e6,
	"usd-k":     1e3,
	"shares":    1,
	"shares-m":  1e6,
	"pure":      1,
}

// CanonicalConcept resolves a market row's tag and label to the canonical
// vocabulary. Unrecognized rows land in the "other" bucket; they are never
// dropped.
func CanonicalConcept(tag, label string) string {
	t := tag
	// The market source prefixes tags with the taxonomy, e.g. "us-gaap_Assets".
	if i := strings.LastIndexAny(t, "_:"); i >= 0 {
		t = t[i+1:]
	}
	if c, ok := conceptByTag[t]; ok {
		return c
	}
	if c, ok := conceptByLabel[strings.ToLower(strings.TrimSpace(label))]; ok {
		return c
	}
	return models.ConceptOther
}

// ScaleValue converts value to whole units for unit, returning the scaled
// value and the normalized unit name.
func ScaleValue(value float64, unit string) (float64, string) {
	if scale, ok := unitScale[unit]; ok {
		normalized := "USD"
		if strings.HasPrefix(unit, "shares") {
			normalized = "shares"
		} else if unit == "pure" {
			normalized = "pure"
		}
		return value * scale, normalized
	}
	return value, unit
}
