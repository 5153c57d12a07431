package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"prepaid-telecom/internal/auth"
	"prepaid-telecom/internal/callrecord"
	"prepaid-telecom/internal/callsession"
	"prepaid-telecom/internal/cashier"
	"prepaid-telecom/internal/operator"
	"prepaid-telecom/internal/rbac"
	"prepaid-telecom/internal/subscriber"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Attempts *auth.AttemptLimiter

	// ManagerUser and ManagerPIN are the back-office credentials from config.
	ManagerUser string
	ManagerPIN  string

	Subscribers *subscriber.Service
	Operators   *operator.Service
	Records     *callrecord.Service
	Cashier     *cashier.Service
	Calls       *callsession.Controller
}

// respondError maps service sentinels onto HTTP status codes. Unknown
// errors become opaque 500s; details stay in the logs.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, subscriber.ErrNotFound),
		errors.Is(err, operator.ErrNotFound),
		errors.Is(err, callsession.ErrUnknownCallee),
		errors.Is(err, callsession.ErrNoActiveCall),
		errors.Is(err, callrecord.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, subscriber.ErrInvalidArgument),
		errors.Is(err, operator.ErrInvalidArgument),
		errors.Is(err, cashier.ErrInvalidArgument),
		errors.Is(err, cashier.ErrAmountBelowMin),
		errors.Is(err, cashier.ErrUnknownOperator),
		errors.Is(err, callsession.ErrSelfCall),
		errors.Is(err, callsession.ErrBadCalleeNumber):
		status = http.StatusBadRequest
	case errors.Is(err, subscriber.ErrPhoneTaken),
		errors.Is(err, operator.ErrNameTaken),
		errors.Is(err, operator.ErrIndexTaken),
		errors.Is(err, operator.ErrMaxIndexes),
		errors.Is(err, operator.ErrIndexInUse),
		errors.Is(err, operator.ErrLastIndex),
		errors.Is(err, operator.ErrNumberUnavailable),
		errors.Is(err, callsession.ErrCallInProgress):
		status = http.StatusConflict
	case errors.Is(err, subscriber.ErrInsufficientCredit),
		errors.Is(err, callsession.ErrNoCredit):
		status = http.StatusPaymentRequired
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// --- Auth ---

type managerLoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

func (h Handlers) ManagerLogin(c *gin.Context) {
	var req managerLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.ManagerUser)) == 1
	pinOK := subtle.ConstantTimeCompare([]byte(req.PIN), []byte(h.ManagerPIN)) == 1
	if !userOK || !pinOK {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.Username, rbac.RoleManager)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type subscriberLoginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

func (h Handlers) SubscriberLogin(c *gin.Context) {
	var req subscriberLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()

	locked, err := h.Attempts.Locked(ctx, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	if locked {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many failed attempts"})
		return
	}

	if _, err := h.Subscribers.VerifyPIN(ctx, req.Phone, req.PIN); err != nil {
		if errors.Is(err, subscriber.ErrBadPIN) || errors.Is(err, subscriber.ErrNotFound) {
			remaining, aerr := h.Attempts.RecordFailure(ctx, req.Phone)
			if aerr != nil {
				respondError(c, aerr)
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":              "invalid credentials",
				"attempts_remaining": remaining,
			})
			return
		}
		respondError(c, err)
		return
	}
	if err := h.Attempts.Reset(ctx, req.Phone); err != nil {
		respondError(c, err)
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.Phone, rbac.RoleSubscriber)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Subscriber surface ---

func (h Handlers) MyCredit(c *gin.Context) {
	phone, err := auth.SubjectID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	sub, err := h.Subscribers.GetByPhone(c.Request.Context(), phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phone": sub.Phone, "credit_minor": sub.CreditMinor})
}

type placeCallRequest struct {
	CalleeNumber string `json:"callee_number"`
}

// PlaceCall blocks for the whole call and reports the settled outcome.
func (h Handlers) PlaceCall(c *gin.Context) {
	phone, err := auth.SubjectID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	var req placeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Calls.PlaceCall(c.Request.Context(), phone, req.CalleeNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) AnswerCall(c *gin.Context) {
	phone, err := auth.SubjectID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	if err := h.Calls.Answer(phone); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "answered"})
}

func (h Handlers) HangupCall(c *gin.Context) {
	phone, err := auth.SubjectID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	if err := h.Calls.Hangup(phone); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "hangup"})
}

func (h Handlers) MyHistory(c *gin.Context) {
	phone, err := auth.SubjectID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	recs, err := h.Records.List(c.Request.Context(), phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (h Handlers) MarkHistoryRead(c *gin.Context) {
	phone, err := auth.SubjectID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "record id required"})
		return
	}
	if err := h.Records.MarkRead(c.Request.Context(), phone, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
