package models

type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeCogs      AccountType = "COGS"
	AccountTypeTax       AccountType = "TAX"
)

type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "draft"
	JournalStatusPosted JournalStatus = "posted"
)

// TransactionKind classifies a posting for account-role validation.
type TransactionKind string

const (
	TransactionKindExpense  TransactionKind = "expense"
	TransactionKindSales    TransactionKind = "sales"
	TransactionKindPurchase TransactionKind = "purchase"
	TransactionKindSalary   TransactionKind = "salary"
	TransactionKindPayment  TransactionKind = "payment"
	TransactionKindManual   TransactionKind = "manual"
)

type LineRole string

const (
	LineRoleDebit  LineRole = "debit"
	LineRoleCredit LineRole = "credit"
)

type QuickTransactionKind string

const (
	QuickTxnSupplierPayment  QuickTransactionKind = "supplier_payment"
	QuickTxnPayLiability     QuickTransactionKind = "pay_liability"
	QuickTxnCollection       QuickTransactionKind = "collection"
	QuickTxnBankDeposit      QuickTransactionKind = "bank_deposit"
	QuickTxnCapitalInjection QuickTransactionKind = "capital_injection"
	QuickTxnOwnerDraw        QuickTransactionKind = "owner_draw"
)

type InvoiceStatus string

const (
	InvoiceStatusUnpaid  InvoiceStatus = "unpaid"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

type InvoiceKind string

const (
	InvoiceKindPurchase InvoiceKind = "purchase"
	InvoiceKindExpense  InvoiceKind = "expense"
)
