package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/goldenfork/ledger_backend/config"
	"github.com/goldenfork/ledger_backend/middlewares"
	"github.com/goldenfork/ledger_backend/models"
	"github.com/goldenfork/ledger_backend/models/reports"
	"github.com/goldenfork/ledger_backend/utils"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

const dateLayout = "2006-01-02"

var accountCodePattern = regexp.MustCompile(`^[0-9]{4,20}$`)

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("accountcode", func(fl validator.FieldLevel) bool {
			return accountCodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})
	}
}

// renderError maps the model error taxonomy onto HTTP statuses. Unknown
// errors are logged with their correlation id and come back as a bare 500.
func renderError(c *gin.Context, err error) {
	switch {
	case models.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case models.IsIntegrityConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), "server.go", "renderError", correlationId, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseDateParam(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return parsed, true
}

func postJournalHandler(c *gin.Context) {
	var input models.NewJournalEntry
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := models.PostJournal(c.Request.Context(), &input)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func postJournalBatchHandler(c *gin.Context) {
	var inputs []*models.NewJournalEntry
	if err := c.ShouldBindJSON(&inputs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(inputs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch is empty"})
		return
	}
	result, err := models.PostJournalBatch(c.Request.Context(), inputs)
	if err != nil {
		renderError(c, err)
		return
	}
	status := http.StatusCreated
	if len(result.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func getJournalHandler(c *gin.Context) {
	entry, err := models.GetJournalEntry(c.Request.Context(), c.Param("entryNumber"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func reverseJournalHandler(c *gin.Context) {
	var input models.ReverseJournalInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	entry, err := models.ReverseJournal(c.Request.Context(), c.Param("entryNumber"), &input)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func quickTransactionHandler(c *gin.Context) {
	var input models.NewQuickTransaction
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := models.BuildQuickTransaction(c.Request.Context(), &input)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func quickTransactionBatchHandler(c *gin.Context) {
	var inputs []*models.NewQuickTransaction
	if err := c.ShouldBindJSON(&inputs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(inputs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch is empty"})
		return
	}
	result, err := models.BuildQuickTransactionBatch(c.Request.Context(), inputs)
	if err != nil {
		renderError(c, err)
		return
	}
	status := http.StatusCreated
	if len(result.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func listAccountsHandler(c *gin.Context) {
	var name, code *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	if v := c.Query("code"); v != "" {
		code = &v
	}
	accounts, err := models.GetAccounts(c.Request.Context(), name, code)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func addSubAccountHandler(c *gin.Context) {
	var input models.NewSubAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := models.AddSubAccount(c.Request.Context(), &input)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func setAccountActiveHandler(c *gin.Context) {
	var input struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := models.SetAccountActive(c.Request.Context(), c.Param("code"), *input.Active)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func deleteAccountHandler(c *gin.Context) {
	account, err := models.DeleteAccount(c.Request.Context(), c.Param("code"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func accountBalanceHandler(c *gin.Context) {
	asof, ok := parseDateParam(c, "asof", time.Now())
	if !ok {
		return
	}
	balance, err := models.AccountBalanceAsOf(c.Request.Context(), c.Param("code"), asof)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    c.Param("code"),
		"asof":    asof.Format(dateLayout),
		"balance": balance,
	})
}

func createInvoiceHandler(c *gin.Context) {
	var input models.NewSupplierInvoice
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invoice, err := models.CreateSupplierInvoice(c.Request.Context(), &input)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func createSalaryHandler(c *gin.Context) {
	var input models.NewSalaryRecord
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := models.CreateSalaryRecord(c.Request.Context(), &input)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func trialBalanceHandler(c *gin.Context) {
	asof, ok := parseDateParam(c, "asof", time.Now())
	if !ok {
		return
	}
	report, err := reports.TrialBalance(c.Request.Context(), asof)
	if err != nil {
		renderError(c, err)
		return
	}
	switch c.Query("format") {
	case "csv":
		data, err := reports.TrialBalanceCSV(report)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="trial_balance.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	case "xlsx":
		data, err := reports.TrialBalanceXLSX(report)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="trial_balance.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusOK, report)
	}
}

func balanceSheetHandler(c *gin.Context) {
	asof, ok := parseDateParam(c, "asof", time.Now())
	if !ok {
		return
	}
	report, err := reports.BalanceSheet(c.Request.Context(), asof)
	if err != nil {
		renderError(c, err)
		return
	}
	switch c.Query("format") {
	case "csv":
		data, err := reports.BalanceSheetCSV(report)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="balance_sheet.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	case "xlsx":
		data, err := reports.BalanceSheetXLSX(report)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="balance_sheet.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusOK, report)
	}
}

func incomeStatementHandler(c *gin.Context) {
	now := time.Now()
	from, ok := parseDateParam(c, "from", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	if !ok {
		return
	}
	to, ok := parseDateParam(c, "to", now)
	if !ok {
		return
	}
	var branch *string
	if v := strings.TrimSpace(c.Query("branch")); v != "" {
		branch = &v
	}
	report, err := reports.IncomeStatement(c.Request.Context(), from, to, branch)
	if err != nil {
		renderError(c, err)
		return
	}
	switch c.Query("format") {
	case "csv":
		data, err := reports.IncomeStatementCSV(report)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="income_statement.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	case "xlsx":
		data, err := reports.IncomeStatementXLSX(report)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="income_statement.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusOK, report)
	}
}

func accountStatementHandler(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	now := time.Now()
	from, ok := parseDateParam(c, "from", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	if !ok {
		return
	}
	to, ok := parseDateParam(c, "to", now)
	if !ok {
		return
	}
	report, err := reports.AccountStatement(c.Request.Context(), code, from, to)
	if err != nil {
		renderError(c, err)
		return
	}
	if c.Query("format") == "csv" {
		data, err := reports.AccountStatementCSV(report)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="account_statement.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
		return
	}
	c.JSON(http.StatusOK, report)
}

func reconcileHandler(c *gin.Context) {
	fix := c.Query("fix") == "true" || c.Query("fix") == "1"
	summary, err := models.Reconcile(c.Request.Context(), fix)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func driftHandler(c *gin.Context) {
	summary, err := models.CheckDrift(c.Request.Context())
	if err != nil {
		var drift *models.ReconciliationDriftError
		if errors.As(err, &drift) {
			c.JSON(http.StatusConflict, gin.H{"error": drift.Error(), "summary": summary})
			return
		}
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func reconcileRunHandler(c *gin.Context) {
	findings, err := models.GetReconciliationRun(c.Request.Context(), c.Param("correlationId"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, findings)
}

func clearCacheHandler(c *gin.Context) {
	if err := config.ClearRedis(c.Request.Context()); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/journals", postJournalHandler)
	api.POST("/journals/batch", postJournalBatchHandler)
	api.GET("/journals/:entryNumber", getJournalHandler)
	api.POST("/journals/:entryNumber/reverse", reverseJournalHandler)

	api.POST("/quick-txn", quickTransactionHandler)
	api.POST("/quick-txn/batch", quickTransactionBatchHandler)

	api.GET("/accounts", listAccountsHandler)
	api.POST("/accounts/sub", addSubAccountHandler)
	api.PUT("/accounts/:code/active", setAccountActiveHandler)
	api.DELETE("/accounts/:code", deleteAccountHandler)
	api.GET("/accounts/:code/balance", accountBalanceHandler)

	api.POST("/invoices", createInvoiceHandler)
	api.POST("/salaries", createSalaryHandler)

	api.GET("/reports/trial-balance", trialBalanceHandler)
	api.GET("/reports/balance-sheet", balanceSheetHandler)
	api.GET("/reports/income-statement", incomeStatementHandler)
	api.GET("/reports/account-statement", accountStatementHandler)

	api.POST("/admin/reconcile", reconcileHandler)
	api.GET("/admin/reconcile/:correlationId", reconcileRunHandler)
	api.GET("/admin/drift", driftHandler)
	api.POST("/admin/cache/clear", clearCacheHandler)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()
	registerValidators()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server before the DB is up. Until dependencies are
	// ready, app endpoints return 503 and only the health probe answers.
	r := gin.New()
	r.Use(middlewares.RequestContext())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id", "x-actor", "x-branch-code")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))
	r.Use(gin.Recovery())

	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// Migration is explicit and runs before any posting traffic. It can be
	// moved to a separate job via SKIP_MIGRATIONS when DDL must not run here.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
		if err := models.EnsureAccounts(context.Background()); err != nil {
			logger.WithFields(logrus.Fields{"field": "chart of accounts"}).Panic(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
