package classify

import "github.com/extracto-dev/extracto/internal/model"

// DefaultCategoryRules returns the built-in category keyword table, in
// evaluation order.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Name: "Payroll", Category: model.CategoryWork, Regex: `NOMINA`},
		{Name: "Investment Platform", Category: model.CategoryInvestment, Regex: `INDEXA|REVOLUT|AHORROPENSION`},
		{
			Name:     "Supermarket",
			Category: model.CategorySupermarket,
			Regex:    `MERCADONA|COALIMENT|MARKET|EROSKI|LIDL|SUPERMERCADO|COVIRAN|PANADERIA`,
		},
		{
			Name:     "Fuel & Tolls",
			Category: model.CategoryTransport,
			Regex:    `REPSOL|CEPSA|GASOLINERA|\bBP\b|EMPALME|\bAUT|GASO`,
		},
		{
			Name:     "Home",
			Category: model.CategoryHousing,
			Regex:    `CUOTA\s+PTMO|GASTOS\s+PISO\s+GERB|COMUNITAT\s+JOSU\s+MENSUAL`,
		},
		{Name: "Video Games", Category: model.CategoryVideoGames, Regex: `NINTENDO|XTRALIFE`},
		{Name: "Shopping", Category: model.CategoryLeisure, Regex: `AMZN|AMAZON|WALLAPOP`},
		{Name: "Streaming", Category: model.CategorySubscriptions, Regex: `NETFLIX|SPOTIFY|\bHBO|PRIME`},
		{Name: "Telecom", Category: model.CategoryCommunications, Regex: `VODAFONE|MOVISTAR|\bO2\b|DIGI`},
		{Name: "Pharmacy", Category: model.CategoryHealth, Regex: `FARMACIA`},
	}
}

// DefaultKindRules returns the keyword rules consulted for negative amounts,
// in evaluation order. Investment platforms are checked before the amount
// sign; see Classifier.Kind.
func DefaultKindRules() []KindRule {
	return []KindRule{
		{Name: "Named Income", Kind: model.KindIncome, Regex: `NOMINA|TRANSF\.?\s*MANGOPAY`},
		{
			Name:  "Loans & Instalments",
			Kind:  model.KindFixedExpense,
			Regex: `CUOTA\s+PTMO|GASTOS\s+PISO\s+GERB|APLAZAME|CETELEM|ONEY\s+PAGO\s+APLAZADO|COMUNITAT\s+JOSU\s+MENSUAL`,
		},
	}
}

// DefaultInvestmentRegex matches investment platforms. A match makes the
// transaction an Investment regardless of the amount sign.
const DefaultInvestmentRegex = `INDEXA|REVOLUT|AHORROPENSION`
