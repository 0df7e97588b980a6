package edgar

import "FundLens/internal/domain/models"

// fallbackTags maps each canonical concept to the ordered XBRL tags tried
// against company facts. The first tag carrying data wins; only after the
// whole chain misses is the concept reported unavailable. Tags default to the
// us-gaap taxonomy; a "dei:" prefix switches taxonomy.
//
// Declarative on purpose: extending coverage is a table edit, not new logic.
var fallbackTags = map[string][]string{
	models.ConceptRevenue: {
		"Revenues",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"RevenueFromContractWithCustomerIncludingAssessedTax",
		"SalesRevenueNet",
	},
	models.ConceptCostOfRevenue: {
		"CostOfRevenue",
		"CostOfGoodsAndServicesSold",
		"CostOfGoodsSold",
	},
	models.ConceptGrossProfit: {
		"GrossProfit",
	},
	models.ConceptResearchDevelopment: {
		"ResearchAndDevelopmentExpense",
	},
	models.ConceptSellingGeneralAdmin: {
		"SellingGeneralAndAdministrativeExpense",
	},
	models.ConceptOperatingIncome: {
		"OperatingIncomeLoss",
	},
	models.ConceptInterestExpense: {
		"InterestExpense",
		"InterestIncomeExpenseNet",
	},
	models.ConceptNetIncome: {
		"NetIncomeLoss",
		"ProfitLoss",
	},
	models.ConceptDepreciationAmortization: {
		"DepreciationDepletionAndAmortization",
		"DepreciationAndAmortization",
		"Depreciation",
	},
	models.ConceptStockBasedCompensation: {
		"ShareBasedCompensation",
	},
	models.ConceptDeferredTaxes: {
		"DeferredIncomeTaxExpenseBenefit",
	},
	models.ConceptOperatingCashFlow: {
		"NetCashProvidedByUsedInOperatingActivities",
		"NetCashProvidedByUsedInOperatingActivitiesContinuingOperations",
	},
	models.ConceptCapitalExpenditure: {
		"PaymentsToAcquirePropertyPlantAndEquipment",
	},
	models.ConceptCashAndEquivalents: {
		"CashAndCashEquivalentsAtCarryingValue",
		"CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalents",
	},
	models.ConceptMarketableSecurities: {
		"MarketableSecuritiesCurrent",
		"AvailableForSaleSecuritiesDebtSecuritiesCurrent",
		"ShortTermInvestments",
	},
	models.ConceptShortTermDebt: {
		"LongTermDebtCurrent",
		"DebtCurrent",
		"ShortTermBorrowings",
	},
	models.ConceptLongTermDebt: {
		"LongTermDebtNoncurrent",
		"LongTermDebt",
	},
	models.ConceptTotalAssets: {
		"Assets",
	},
	models.ConceptTotalLiabilities: {
		"Liabilities",
	},
	models.ConceptStockholdersEquity: {
		"StockholdersEquity",
		"StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest",
	},
	models.ConceptGoodwill: {
		"Goodwill",
	},
	models.ConceptInventory: {
		"InventoryNet",
	},
	models.ConceptReceivables: {
		"AccountsReceivableNetCurrent",
	},
	models.ConceptSharesOutstanding: {
		"dei:EntityCommonStockSharesOutstanding",
		"CommonStockSharesOutstanding",
	},
}
