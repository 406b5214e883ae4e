package models

import (
	"context"
	"strconv"
	"strings"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/utils"
	"gorm.io/gorm/clause"
)

// AccountDef is one node of the canonical chart definition. The tree is fixed
// at data-definition time: there is exactly one code namespace, and renames or
// merges are data migrations, never runtime aliasing.
type AccountDef struct {
	Code   string
	NameAr string
	NameEn string
	Type   AccountType
	Parent string // empty for roots
}

// TreeNode is the in-memory view of one account with derived fields.
type TreeNode struct {
	Code   string
	NameAr string
	NameEn string
	Type   AccountType
	Parent string
	Level  int
	Leaf   bool
}

var chartOfAccountsDef = []AccountDef{
	// Assets
	{"1000", "الأصول", "Assets", AccountTypeAsset, ""},
	{"1100", "أصول متداولة", "Current Assets", AccountTypeAsset, "1000"},
	{"1110", "النقدية", "Cash", AccountTypeAsset, "1100"},
	{"1111", "صندوق رئيسي", "Main Cash", AccountTypeAsset, "1110"},
	{"1112", "صندوق فرعي", "Sub Cash", AccountTypeAsset, "1110"},
	{"1113", "صندوق نقاط البيع", "POS Cash Drawer", AccountTypeAsset, "1110"},
	{"1120", "البنوك", "Banks", AccountTypeAsset, "1100"},
	{"1121", "البنك – حساب رئيسي", "Bank Main", AccountTypeAsset, "1120"},
	{"1122", "بنك الأهلي", "Bank Alahli", AccountTypeAsset, "1120"},
	{"1123", "بنك الرياض", "Bank Riyad", AccountTypeAsset, "1120"},
	{"1140", "ذمم مدينة", "Receivables", AccountTypeAsset, "1100"},
	{"1141", "ذمم العملاء", "Customer Receivables", AccountTypeAsset, "1140"},
	{"1142", "ذمم مدينة أخرى", "Other Receivables", AccountTypeAsset, "1140"},
	{"1144", "ذمم هنقرستيشن", "Hungerstation Receivable", AccountTypeAsset, "1140"},
	{"1145", "ذمم كيتا", "Keeta Receivable", AccountTypeAsset, "1140"},
	{"1146", "ذمم جاهز", "Jahez Receivable", AccountTypeAsset, "1140"},
	{"1150", "سلف وعهد", "Advances", AccountTypeAsset, "1100"},
	{"1151", "سلف الموظفين", "Employee Advances", AccountTypeAsset, "1150"},
	{"1160", "المخزون", "Inventory", AccountTypeAsset, "1100"},
	{"1161", "مخزون مواد غذائية", "Food Inventory", AccountTypeAsset, "1160"},
	{"1162", "مخزون مشروبات", "Beverage Inventory", AccountTypeAsset, "1160"},
	{"1163", "مخزون مستلزمات", "Supplies Inventory", AccountTypeAsset, "1160"},
	{"1170", "ضريبة مدخلات", "Input VAT", AccountTypeAsset, "1100"},
	{"1200", "أصول غير متداولة", "Non-current Assets", AccountTypeAsset, "1000"},
	{"1210", "معدات وتجهيزات", "Equipment", AccountTypeAsset, "1200"},
	{"1220", "أثاث وديكور", "Furniture", AccountTypeAsset, "1200"},
	{"1230", "مركبات", "Vehicles", AccountTypeAsset, "1200"},

	// Liabilities
	{"2000", "الالتزامات", "Liabilities", AccountTypeLiability, ""},
	{"2100", "التزامات متداولة", "Current Liabilities", AccountTypeLiability, "2000"},
	{"2110", "ذمم دائنة", "Payables", AccountTypeLiability, "2100"},
	{"2111", "الموردون", "Accounts Payable - Suppliers", AccountTypeLiability, "2110"},
	{"2112", "ذمم دائنة أخرى", "Other Payables", AccountTypeLiability, "2110"},
	{"2113", "ذمم دائنة – هنقرستيشن (عمولات)", "Payable - Hungerstation", AccountTypeLiability, "2110"},
	{"2114", "ذمم دائنة – كيتا (عمولات)", "Payable - Keeta", AccountTypeLiability, "2110"},
	{"2115", "ذمم دائنة – جاهز (عمولات)", "Payable - Jahez", AccountTypeLiability, "2110"},
	{"2116", "ذمم دائنة – نون (عمولات)", "Payable - Noon", AccountTypeLiability, "2110"},
	{"2120", "مستحقات", "Accruals", AccountTypeLiability, "2100"},
	{"2121", "رواتب مستحقة", "Accrued Salaries", AccountTypeLiability, "2120"},
	{"2122", "بدلات مستحقة", "Accrued Allowances", AccountTypeLiability, "2120"},
	{"2130", "مستحقات حكومية", "Government Dues", AccountTypeLiability, "2100"},
	{"2131", "التأمينات الاجتماعية GOSI", "GOSI", AccountTypeLiability, "2130"},
	{"2135", "ضرائب حكومية أخرى", "Other Government Taxes", AccountTypeLiability, "2130"},
	{"2140", "ضرائب مستحقة", "Taxes Payable", AccountTypeTax, "2100"},
	{"2141", "ضريبة قيمة مضافة مستحقة", "Output VAT", AccountTypeTax, "2140"},
	{"2200", "التزامات غير متداولة", "Non-current Liabilities", AccountTypeLiability, "2000"},
	{"2210", "قروض طويلة الأجل", "Long-term Loans", AccountTypeLiability, "2200"},

	// Equity
	{"3000", "حقوق الملكية", "Equity", AccountTypeEquity, ""},
	{"3110", "رأس المال", "Capital", AccountTypeEquity, "3000"},
	{"3210", "أرباح سنوات سابقة", "Retained Earnings", AccountTypeEquity, "3000"},
	{"3220", "نتيجة السنة الحالية", "Current Year Result", AccountTypeEquity, "3000"},
	{"3310", "سحوبات المالك", "Owner Draws", AccountTypeEquity, "3000"},

	// Revenue
	{"4000", "الإيرادات", "Revenue", AccountTypeRevenue, ""},
	{"4100", "إيرادات المبيعات", "Sales Revenue", AccountTypeRevenue, "4000"},
	{"4111", "مبيعات الصين تاون", "China Town Sales", AccountTypeRevenue, "4100"},
	{"4112", "مبيعات بليس إنديا", "Place India Sales", AccountTypeRevenue, "4100"},
	{"4120", "مبيعات منصات التوصيل", "Delivery Platform Sales", AccountTypeRevenue, "4100"},
	{"4200", "إيرادات أخرى", "Other Income", AccountTypeRevenue, "4000"},
	{"4210", "خصومات موردين مكتسبة", "Supplier Discounts Earned", AccountTypeRevenue, "4200"},
	{"4211", "إيراد فروقات تسويات", "Settlement Differences Income", AccountTypeRevenue, "4200"},
	{"4212", "إيرادات متنوعة", "Miscellaneous Income", AccountTypeRevenue, "4200"},
	{"4300", "إيرادات غير تشغيلية", "Non-operating Income", AccountTypeRevenue, "4000"},
	{"4310", "أرباح استثنائية", "Exceptional Gains", AccountTypeRevenue, "4300"},

	// Cost of sales
	{"5000", "تكلفة المبيعات", "Cost of Sales", AccountTypeCogs, ""},
	{"5110", "تكلفة مواد غذائية", "Food Cost", AccountTypeCogs, "5000"},
	{"5120", "تكلفة مشروبات", "Beverage Cost", AccountTypeCogs, "5000"},
	{"5130", "تكلفة تغليف", "Packaging Cost", AccountTypeCogs, "5000"},
	{"5140", "مستلزمات تشغيل مباشرة", "Direct Operating Supplies", AccountTypeCogs, "5000"},
	{"5150", "فروقات جرد المخزون", "Inventory Count Variance", AccountTypeCogs, "5000"},
	{"5160", "هدر مواد", "Material Waste", AccountTypeCogs, "5000"},

	// Operating expenses
	{"5200", "مرافق وصيانة", "Utilities & Maintenance", AccountTypeExpense, ""},
	{"5210", "كهرباء", "Electricity", AccountTypeExpense, "5200"},
	{"5220", "ماء", "Water", AccountTypeExpense, "5200"},
	{"5230", "إنترنت", "Internet", AccountTypeExpense, "5200"},
	{"5240", "صيانة عامة", "General Maintenance", AccountTypeExpense, "5200"},
	{"5270", "إيجار", "Rent", AccountTypeExpense, "5200"},
	{"5300", "رواتب وأجور", "Salaries & Wages", AccountTypeExpense, ""},
	{"5310", "رواتب الموظفين", "Staff Salaries", AccountTypeExpense, "5300"},
	{"5320", "بدلات", "Allowances", AccountTypeExpense, "5300"},
	{"5400", "مصروفات عمومية وإدارية", "General & Administrative", AccountTypeExpense, ""},
	{"5410", "مواد تنظيف", "Cleaning Supplies", AccountTypeExpense, "5400"},
	{"5420", "مصروفات مكتبية", "Office Supplies", AccountTypeExpense, "5400"},
	{"5430", "غسيل ملابس", "Laundry", AccountTypeExpense, "5400"},
	{"5500", "تسويق وعمولات", "Marketing & Commissions", AccountTypeExpense, ""},
	{"5550", "تسويق وإعلان", "Marketing & Advertising", AccountTypeExpense, "5500"},
	{"5555", "عمولات منصات التوصيل", "Delivery Platform Commissions", AccountTypeExpense, "5500"},
	{"5600", "مصروفات تشغيلية أخرى", "Other Operating Expenses", AccountTypeExpense, ""},
	{"5610", "عمولات بنكية", "Bank Fees", AccountTypeExpense, "5600"},
	{"5620", "رسوم حكومية", "Government Fees", AccountTypeExpense, "5600"},
	{"5630", "ديزل ووقود", "Diesel & Fuel", AccountTypeExpense, "5600"},
	{"5700", "مصروفات أخرى", "Other Expenses", AccountTypeExpense, ""},
	{"5710", "خسائر استثنائية", "Exceptional Losses", AccountTypeExpense, "5700"},
	{"5711", "فروقات تسويات", "Settlement Differences", AccountTypeExpense, "5700"},
	{"5800", "استهلاك ومصروفات غير تشغيلية", "Depreciation & Non-operating", AccountTypeExpense, ""},
	{"5810", "استهلاك الأصول", "Depreciation", AccountTypeExpense, "5800"},
	{"5820", "مصروفات غير تشغيلية", "Non-operating Expenses", AccountTypeExpense, "5800"},
}

// Canonical posting codes referenced by the quick-transaction builder and reports.
const (
	AccountCodeMainCash        = "1111"
	AccountCodeBankMain        = "1121"
	AccountCodeCustomerAR      = "1141"
	AccountCodeOtherAR         = "1142"
	AccountCodeEmployeeAdvance = "1151"
	AccountCodeInputVAT        = "1170"
	AccountCodeSupplierAP      = "2111"
	AccountCodeAccruedSalaries = "2121"
	AccountCodeOutputVAT       = "2141"
	AccountCodeRetainedEarn    = "3210"
	AccountCodeCurrentYear     = "3220"
	AccountCodeOwnerDraws      = "3310"
	AccountCodeMaterialWaste   = "5160"
)

var (
	cashCodes = map[string]bool{"1111": true, "1112": true, "1113": true}
	bankCodes = map[string]bool{"1121": true, "1122": true, "1123": true}

	inventoryCodes = []string{"1161", "1162", "1163"}
)

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsCashCode(code string) bool { return cashCodes[normalizeCode(code)] }
func IsBankCode(code string) bool { return bankCodes[normalizeCode(code)] }

// InventoryCodes lists the stock accounts used by the COGS rollforward.
func InventoryCodes() []string {
	return append([]string(nil), inventoryCodes...)
}

// BuildTree constructs the hierarchy from the fixed definition with derived
// level and leaf flags.
func BuildTree() map[string]*TreeNode {
	nodes := make(map[string]*TreeNode, len(chartOfAccountsDef))
	children := make(map[string]int)
	for _, def := range chartOfAccountsDef {
		nodes[def.Code] = &TreeNode{
			Code:   def.Code,
			NameAr: def.NameAr,
			NameEn: def.NameEn,
			Type:   def.Type,
			Parent: def.Parent,
		}
		if def.Parent != "" {
			children[def.Parent]++
		}
	}
	for _, n := range nodes {
		n.Level = treeLevel(nodes, n.Code)
		n.Leaf = children[n.Code] == 0
	}
	return nodes
}

func treeLevel(nodes map[string]*TreeNode, code string) int {
	level := 1
	cur := nodes[code]
	for cur != nil && cur.Parent != "" {
		level++
		cur = nodes[cur.Parent]
	}
	return level
}

// TreeType returns the account type from the fixed definition, if present.
func TreeType(code string) (AccountType, bool) {
	for _, def := range chartOfAccountsDef {
		if def.Code == normalizeCode(code) {
			return def.Type, true
		}
	}
	return "", false
}

// EnsureAccounts upserts the canonical tree into the accounts table.
// Idempotent: creates missing accounts and refreshes names/types/levels,
// never deletes. Custom sub-accounts added at runtime are left untouched.
func EnsureAccounts(ctx context.Context) error {
	db := config.GetDB()
	tree := BuildTree()

	accounts := make([]Account, 0, len(tree))
	for _, def := range chartOfAccountsDef {
		node := tree[def.Code]
		var parent *string
		if def.Parent != "" {
			p := def.Parent
			parent = &p
		}
		name := def.NameAr
		if name == "" {
			name = def.NameEn
		}
		accounts = append(accounts, Account{
			Code:              def.Code,
			Name:              name,
			NameAr:            def.NameAr,
			NameEn:            def.NameEn,
			Type:              def.Type,
			ParentAccountCode: parent,
			Level:             node.Level,
			Active:            utils.NewTrue(),
		})
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "name_ar", "name_en", "type", "parent_account_code", "level",
		}),
	}).Create(&accounts).Error
}

// AddSubAccount creates a child under parentCode with an auto-generated code:
// next numeric sibling preserving the sibling code width, or parent+"1" when
// the parent has no children yet. A collision with an existing code is an
// IntegrityConflict (the caller retries).
func AddSubAccount(ctx context.Context, input *NewSubAccount) (*Account, error) {
	db := config.GetDB()

	parentCode := normalizeCode(input.ParentCode)
	if parentCode == "" || strings.TrimSpace(input.NameAr) == "" {
		return nil, NewValidationError("parent_code and name_ar are required")
	}

	parent, err := GetAccount(ctx, parentCode)
	if err != nil {
		return nil, err
	}

	var siblings []string
	if err := db.WithContext(ctx).Model(&Account{}).
		Where("parent_account_code = ?", parent.Code).
		Pluck("code", &siblings).Error; err != nil {
		return nil, err
	}

	newCode := nextSiblingCode(parent.Code, siblings)
	if err := utils.ValidateUnique[Account](ctx, "code", newCode); err != nil {
		return nil, &IntegrityConflictError{Reason: "generated code " + newCode + " is already in use"}
	}

	account := Account{
		Code:              newCode,
		Name:              strings.TrimSpace(input.NameAr),
		NameAr:            strings.TrimSpace(input.NameAr),
		NameEn:            strings.TrimSpace(input.NameEn),
		Type:              parent.Type,
		ParentAccountCode: &parent.Code,
		Level:             parent.Level + 1,
	}
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, wrapDuplicateKey(err, "account code")
	}
	return &account, nil
}

// nextSiblingCode allocates the next code under a parent.
// No siblings: numeric parents increment into the parent's width, otherwise
// the parent code gets a "1" suffix. With siblings: max numeric sibling + 1,
// zero-padded to the widest sibling code.
func nextSiblingCode(parentCode string, siblings []string) string {
	if len(siblings) == 0 {
		if n, err := strconv.Atoi(parentCode); err == nil {
			return zeroPad(n+1, len(parentCode))
		}
		return parentCode + "1"
	}
	maxNumeric := 0
	hasNumeric := false
	width := 0
	for _, s := range siblings {
		if len(s) > width {
			width = len(s)
		}
		if n, err := strconv.Atoi(s); err == nil {
			hasNumeric = true
			if n > maxNumeric {
				maxNumeric = n
			}
		}
	}
	if hasNumeric {
		return zeroPad(maxNumeric+1, width)
	}
	return parentCode + strconv.Itoa(len(siblings)+1)
}

func zeroPad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
