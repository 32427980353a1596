package model

// Kind classifies a transaction by cash-flow role. It is orthogonal to Category.
type Kind string

const (
	KindFixedExpense    Kind = "fixed_expense"
	KindVariableExpense Kind = "variable_expense"
	KindIncome          Kind = "income"
	KindInvestment      Kind = "investment"
)

// Kinds lists every Kind in display order.
var Kinds = []Kind{KindFixedExpense, KindVariableExpense, KindInvestment, KindIncome}

// Valid reports whether k is a member of the enumeration.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}

// IsExpense reports whether k counts toward monthly spending.
// Investments are outflows but not expenses.
func (k Kind) IsExpense() bool {
	return k == KindFixedExpense || k == KindVariableExpense
}

// PaymentMethod records how a ledger transaction was paid.
type PaymentMethod string

const (
	PaymentCard        PaymentMethod = "card"
	PaymentCash        PaymentMethod = "cash"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentBizum       PaymentMethod = "bizum"
	PaymentDirectDebit PaymentMethod = "direct_debit"
)

// PaymentMethods lists every PaymentMethod.
var PaymentMethods = []PaymentMethod{PaymentCard, PaymentCash, PaymentTransfer, PaymentBizum, PaymentDirectDebit}

// Valid reports whether p is a member of the enumeration.
func (p PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if p == v {
			return true
		}
	}
	return false
}
