package models

// Canonical concept vocabulary. Every source-native label is mapped into one
// of these names during normalization; anything else lands in ConceptOther
// with its original label preserved.
const (
	ConceptRevenue                  = "revenue"
	ConceptCostOfRevenue            = "cost_of_revenue"
	ConceptGrossProfit              = "gross_profit"
	ConceptResearchDevelopment      = "research_development"
	ConceptSellingGeneralAdmin      = "selling_general_admin"
	ConceptOperatingIncome          = "operating_income"
	ConceptInterestExpense          = "interest_expense"
	ConceptNetIncome                = "net_income"
	ConceptDepreciationAmortization = "depreciation_amortization"
	ConceptStockBasedCompensation   = "stock_based_compensation"
	ConceptDeferredTaxes            = "deferred_taxes"
	ConceptOperatingCashFlow        = "operating_cash_flow"
	ConceptCapitalExpenditure       = "capital_expenditure"
	ConceptCashAndEquivalents       = "cash_and_equivalents"
	ConceptMarketableSecurities     = "marketable_securities"
	ConceptShortTermDebt            = "short_term_debt"
	ConceptLongTermDebt             = "long_term_debt"
	ConceptTotalAssets              = "total_assets"
	ConceptTotalLiabilities         = "total_liabilities"
	ConceptStockholdersEquity       = "stockholders_equity"
	ConceptGoodwill                 = "goodwill"
	ConceptInventory                = "inventory"
	ConceptReceivables              = "receivables"
	ConceptSharesOutstanding        = "shares_outstanding"
)

// CoreConcepts are the concepts the filing client fetches for a standard
// ground-up model pass.
var CoreConcepts = []string{
	ConceptRevenue,
	ConceptCostOfRevenue,
	ConceptOperatingIncome,
	ConceptNetIncome,
	ConceptDepreciationAmortization,
	ConceptStockBasedCompensation,
	ConceptOperatingCashFlow,
	ConceptCashAndEquivalents,
	ConceptMarketableSecurities,
	ConceptShortTermDebt,
	ConceptLongTermDebt,
	ConceptTotalAssets,
	ConceptTotalLiabilities,
	ConceptStockholdersEquity,
	ConceptSharesOutstanding,
}
