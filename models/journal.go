package models

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	entryNumberPrefix    = "JE"
	entryNumberQtxPrefix = "JE-QTX"

	dateLayout = "2006-01-02"
)

type JournalEntry struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	EntryNumber string          `gorm:"uniqueIndex;size:40;not null" json:"entry_number"`
	Date        time.Time       `gorm:"type:date;index;not null" json:"date"`
	BranchCode  *string         `gorm:"size:20;index" json:"branch_code"`
	Description string          `gorm:"size:500" json:"description"`
	Kind        TransactionKind `gorm:"type:enum('expense','sales','purchase','salary','payment','manual');default:'manual';size:20;not null" json:"kind"`
	Status      JournalStatus   `gorm:"type:enum('draft','posted');default:'draft';index;size:10;not null" json:"status"`
	TotalDebit  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_debit"`
	TotalCredit decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_credit"`
	CreatedBy   string          `gorm:"size:191" json:"created_by"`
	PostedBy    *string         `gorm:"size:191" json:"posted_by"`
	PostedAt    *time.Time      `json:"posted_at"`
	ReversesID  *uint           `gorm:"index" json:"reverses_id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Lines []JournalLine `gorm:"foreignKey:JournalID" json:"lines"`
}

type JournalLine struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	JournalID   uint            `gorm:"index;not null" json:"journal_id"`
	LineNo      int             `gorm:"not null" json:"line_no"`
	AccountID   string          `gorm:"column:account_id;size:20;index;not null" json:"account_id"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"credit"`
	Description string          `gorm:"size:500" json:"description"`
	LineDate    time.Time       `gorm:"type:date;index;not null" json:"line_date"`
	CostCenter  *string         `gorm:"size:50" json:"cost_center"`
	EmployeeID  *string         `gorm:"size:50;index" json:"employee_id"`
	InvoiceID   *uint           `gorm:"index" json:"invoice_id"`
}

type NewJournalLine struct {
	AccountID   string          `json:"account_id" binding:"required,accountcode"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	LineDate    *string         `json:"line_date" binding:"omitempty,datetime=2006-01-02"`
	CostCenter  *string         `json:"cost_center"`
	EmployeeID  *string         `json:"employee_id"`
}

type NewJournalEntry struct {
	Date        string            `json:"date" binding:"required,datetime=2006-01-02"`
	BranchCode  *string           `json:"branch_code"`
	Description string            `json:"description"`
	Kind        TransactionKind   `json:"kind" binding:"required,oneof=expense sales purchase salary payment manual"`
	Method      string            `json:"method"`
	Lines       []*NewJournalLine `json:"lines" binding:"required,min=2,dive"`
}

func GetJournalEntry(ctx context.Context, entryNumber string) (*JournalEntry, error) {

	db := config.GetDB()
	var entry JournalEntry
	err := db.WithContext(ctx).Preload("Lines").
		Where("entry_number = ?", strings.TrimSpace(entryNumber)).
		First(&entry).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &entry, nil
}

func actorOrSystem(ctx context.Context) string {
	if actor, ok := utils.GetActorFromContext(ctx); ok && actor != "" {
		return actor
	}
	return "system"
}

// nextEntryNumber allocates the next sequence for a prefix by scanning the
// existing numbers, not via a counter table. Must run under the posting lock.
func nextEntryNumber(tx *gorm.DB, ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := tx.WithContext(ctx).Model(&JournalEntry{}).
		Where("entry_number LIKE ?", prefix+"-%").
		Pluck("entry_number", &numbers).Error
	if err != nil {
		return "", err
	}
	max := 0
	for _, num := range numbers {
		tail := strings.TrimPrefix(num, prefix+"-")
		// the JE prefix also LIKE-matches JE-QTX numbers, skip those
		if strings.Contains(tail, "-") {
			continue
		}
		if n, err := strconv.Atoi(tail); err == nil && n > max {
			max = n
		}
	}
	return prefix + "-" + zeroPad(max+1, 4), nil
}

// PostJournal validates and writes one balanced entry with its ledger
// projection in a single transaction. The entry lands already posted: there
// is no draft stage on the posting API.
func PostJournal(ctx context.Context, input *NewJournalEntry) (*JournalEntry, error) {
	return postJournal(ctx, input, entryNumberPrefix)
}

func postJournal(ctx context.Context, input *NewJournalEntry, numberPrefix string) (*JournalEntry, error) {

	entryDate, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		return nil, NewValidationError("invalid date %q, want YYYY-MM-DD", input.Date)
	}

	lines, err := buildJournalLines(ctx, input, entryDate)
	if err != nil {
		return nil, err
	}

	totalDebit, totalCredit, err := ValidateBalanced(input.Lines)
	if err != nil {
		return nil, err
	}

	var entry *JournalEntry
	err = withPostingLock(ctx, []string{"entry_number"}, func(tx *gorm.DB) error {
		entry, err = postJournalInTx(tx, ctx, input, numberPrefix, entryDate, lines, totalDebit, totalCredit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// postJournalInTx writes the entry, its lines and the ledger projection.
// The caller holds the entry_number posting lock and owns the transaction.
func postJournalInTx(tx *gorm.DB, ctx context.Context, input *NewJournalEntry, numberPrefix string,
	entryDate time.Time, lines []JournalLine, totalDebit, totalCredit decimal.Decimal) (*JournalEntry, error) {

	entryNumber, err := nextEntryNumber(tx, ctx, numberPrefix)
	if err != nil {
		return nil, err
	}

	actor := actorOrSystem(ctx)
	now := time.Now()

	branch := input.BranchCode
	if branch == nil {
		if fromHeader, ok := utils.GetBranchCodeFromContext(ctx); ok && fromHeader != "" {
			branch = &fromHeader
		}
	}

	entry := JournalEntry{
		EntryNumber: entryNumber,
		Date:        entryDate,
		BranchCode:  branch,
		Description: input.Description,
		Kind:        input.Kind,
		Status:      JournalStatusPosted,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		CreatedBy:   actor,
		PostedBy:    &actor,
		PostedAt:    &now,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, wrapDuplicateKey(err, "entry number")
	}

	for i := range lines {
		lines[i].JournalID = entry.ID
	}
	if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
		return nil, err
	}
	entry.Lines = lines

	if err := applyLedgerProjection(tx, ctx, &entry, lines); err != nil {
		return nil, err
	}
	return &entry, nil
}

// buildJournalLines validates every input line against the account-role
// rules and returns the persistable rows. Zero/zero lines are dropped.
func buildJournalLines(ctx context.Context, input *NewJournalEntry, entryDate time.Time) ([]JournalLine, error) {

	lines := make([]JournalLine, 0, len(input.Lines))
	lineNo := 0
	for i, in := range input.Lines {
		role, keep, err := lineRole(in.Debit, in.Credit)
		if err != nil {
			return nil, NewValidationError("line %d: %s", i+1, err.Error())
		}
		if !keep {
			continue
		}
		if _, err := ValidateAccountRole(ctx, in.AccountID, input.Kind, role, input.Method); err != nil {
			if IsValidationError(err) {
				return nil, NewValidationError("line %d: %s", i+1, err.Error())
			}
			return nil, err
		}
		lineDate := entryDate
		if in.LineDate != nil {
			parsed, err := time.Parse(dateLayout, *in.LineDate)
			if err != nil {
				return nil, NewValidationError("line %d: invalid line_date %q", i+1, *in.LineDate)
			}
			lineDate = parsed
		}
		lineNo++
		lines = append(lines, JournalLine{
			LineNo:      lineNo,
			AccountID:   codeKey(in.AccountID),
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
			LineDate:    lineDate,
			CostCenter:  in.CostCenter,
			EmployeeID:  in.EmployeeID,
		})
	}
	if len(lines) < 2 {
		return nil, NewValidationError("entry needs at least one debit and one credit line")
	}
	return lines, nil
}

type BatchError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type BatchResult struct {
	Created []*JournalEntry `json:"created"`
	Errors  []BatchError    `json:"errors"`
}

// PostJournalBatch posts entries independently: a rejected entry does not
// roll back its siblings. Non-validation failures abort the batch.
func PostJournalBatch(ctx context.Context, inputs []*NewJournalEntry) (*BatchResult, error) {
	result := &BatchResult{Created: []*JournalEntry{}, Errors: []BatchError{}}
	for i, input := range inputs {
		entry, err := PostJournal(ctx, input)
		if err != nil {
			if IsValidationError(err) || IsNotFoundError(err) || IsIntegrityConflict(err) {
				result.Errors = append(result.Errors, BatchError{Index: i, Reason: err.Error()})
				continue
			}
			return nil, err
		}
		result.Created = append(result.Created, entry)
	}
	return result, nil
}

type ReverseJournalInput struct {
	Date        *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Description string  `json:"description"`
}

// ReverseJournal posts a new entry with swapped debit/credit sides. Posted
// entries are never mutated or deleted, a correction is always a reversal.
func ReverseJournal(ctx context.Context, entryNumber string, input *ReverseJournalInput) (*JournalEntry, error) {

	db := config.GetDB()

	original, err := GetJournalEntry(ctx, entryNumber)
	if err != nil {
		return nil, err
	}
	if original.Status != JournalStatusPosted {
		return nil, NewValidationError("entry %s is not posted, nothing to reverse", original.EntryNumber)
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&JournalEntry{}).
		Where("reverses_id = ?", original.ID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, NewValidationError("entry %s is already reversed", original.EntryNumber)
	}

	reversalDate := time.Now()
	if input != nil && input.Date != nil {
		parsed, err := time.Parse(dateLayout, *input.Date)
		if err != nil {
			return nil, NewValidationError("invalid date %q, want YYYY-MM-DD", *input.Date)
		}
		reversalDate = parsed
	}
	description := "reversal of " + original.EntryNumber
	if input != nil && input.Description != "" {
		description = input.Description
	}

	actor := actorOrSystem(ctx)
	now := time.Now()

	var reversal JournalEntry
	err = withPostingLock(ctx, []string{"entry_number"}, func(tx *gorm.DB) error {

		entryNum, err := nextEntryNumber(tx, ctx, entryNumberPrefix)
		if err != nil {
			return err
		}

		reversal = JournalEntry{
			EntryNumber: entryNum,
			Date:        reversalDate,
			BranchCode:  original.BranchCode,
			Description: description,
			Kind:        original.Kind,
			Status:      JournalStatusPosted,
			TotalDebit:  original.TotalCredit,
			TotalCredit: original.TotalDebit,
			CreatedBy:   actor,
			PostedBy:    &actor,
			PostedAt:    &now,
			ReversesID:  &original.ID,
		}
		if err := tx.WithContext(ctx).Create(&reversal).Error; err != nil {
			return wrapDuplicateKey(err, "entry number")
		}

		lines := make([]JournalLine, 0, len(original.Lines))
		for i, orig := range original.Lines {
			lines = append(lines, JournalLine{
				JournalID:   reversal.ID,
				LineNo:      i + 1,
				AccountID:   orig.AccountID,
				Debit:       orig.Credit,
				Credit:      orig.Debit,
				Description: orig.Description,
				LineDate:    reversalDate,
				CostCenter:  orig.CostCenter,
				EmployeeID:  orig.EmployeeID,
				InvoiceID:   orig.InvoiceID,
			})
		}
		if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
			return err
		}
		reversal.Lines = lines

		return applyLedgerProjection(tx, ctx, &reversal, lines)
	})
	if err != nil {
		return nil, err
	}
	return &reversal, nil
}
