package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"prepaid-telecom/internal/auth"
	"prepaid-telecom/internal/cashier"
)

// Manager (back-office) surface: operator inventory, number sales, credit
// sales and the cash ledger.

type createOperatorRequest struct {
	Name  string `json:"name"`
	Index string `json:"index"`
}

func (h Handlers) CreateOperator(c *gin.Context) {
	var req createOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	op, err := h.Operators.Create(c.Request.Context(), req.Name, req.Index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, op)
}

type renameOperatorRequest struct {
	NewName string `json:"new_name"`
}

func (h Handlers) RenameOperator(c *gin.Context) {
	var req renameOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Operators.Rename(c.Request.Context(), c.Param("name"), req.NewName); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "renamed"})
}

func (h Handlers) ListOperators(c *gin.Context) {
	ops, err := h.Operators.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operators": ops})
}

func (h Handlers) ListOperatorNumbers(c *gin.Context) {
	numbers, err := h.Operators.ListNumbers(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": numbers})
}

type addIndexRequest struct {
	Index string `json:"index"`
}

func (h Handlers) AddOperatorIndex(c *gin.Context) {
	var req addIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Operators.AddIndex(c.Request.Context(), c.Param("name"), req.Index); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "index added"})
}

// RemoveOperatorIndex deletes an index. Removing an operator's last index
// removes the operator itself and requires confirm_remove_operator=true.
func (h Handlers) RemoveOperatorIndex(c *gin.Context) {
	confirm, _ := strconv.ParseBool(c.Query("confirm_remove_operator"))
	if err := h.Operators.RemoveIndex(c.Request.Context(), c.Param("name"), c.Param("index"), confirm); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "index removed"})
}

type sellNumberRequest struct {
	OperatorName string `json:"operator_name"`
	Phone        string `json:"phone"`
	PIN          string `json:"pin"`
}

// SellNumber takes a number out of an operator's inventory and creates the
// subscriber behind it.
func (h Handlers) SellNumber(c *gin.Context) {
	var req sellNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Operators.SellNumber(c.Request.Context(), req.OperatorName, req.Phone, req.PIN); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "number sold", "phone": req.Phone})
}

func (h Handlers) SellCredit(c *gin.Context) {
	managerName, err := auth.SubjectID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	var req cashier.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	entry, err := h.Cashier.SellCredit(c.Request.Context(), managerName, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h Handlers) CashState(c *gin.Context) {
	managerName, err := auth.SubjectID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	totals, err := h.Cashier.CashState(c.Request.Context(), managerName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operators": totals})
}
