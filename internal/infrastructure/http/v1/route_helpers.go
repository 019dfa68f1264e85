package v1

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/transaction"
	"pharmaledger/internal/infrastructure/http/v1/handlers"
)

// transactionPaths maps each create endpoint to the kind it posts.
var transactionPaths = []struct {
	path string
	kind transaction.Kind
}{
	{"/sales", transaction.KindSale},
	{"/purchases", transaction.KindPurchase},
	{"/sale-returns", transaction.KindSaleReturn},
	{"/purchase-returns", transaction.KindPurchaseReturn},
	{"/expenses", transaction.KindExpense},
}

// registerTransactionRoutes registers one create route per transaction kind
// plus the shared lookup and void routes.
func registerTransactionRoutes(rg *gin.RouterGroup, h *handlers.TransactionHandler) {
	for _, p := range transactionPaths {
		rg.POST(p.path, h.Create(p.kind))
	}

	transactions := rg.Group("/transactions")
	transactions.GET("/:id", h.Get)
	transactions.GET("/:id/payments", h.Payments)
	transactions.POST("/:id/void", h.Void)
}
