package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	facilitator "github.com/vitwit/x402-solana"
	"github.com/vitwit/x402-solana/types"
	"github.com/vitwit/x402-solana/utils"
)

type verifyRequest struct {
	PaymentPayload *types.PaymentPayload `json:"paymentPayload"`

	// Decoded through utils.ParsePaymentRequirements so struct-tag validation
	// rejects incomplete requirements before the engine is invoked.
	PaymentRequirements json.RawMessage `json:"paymentRequirements"`
}

type verifyResponse struct {
	IsValid                   bool    `json:"isValid"`
	InvalidReason             *string `json:"invalidReason"`
	Payer                     string  `json:"payer,omitempty"`
	GasSponsoredByFacilitator bool    `json:"gasSponsoredByFacilitator"`
}

type createSponsoredRequest struct {
	UserPublicKey       string                     `json:"userPublicKey"`
	PaymentRequirements *types.PaymentRequirements `json:"paymentRequirements"`
}

type createSponsoredResponse struct {
	Success              bool   `json:"success"`
	Transaction          string `json:"transaction,omitempty"`
	FacilitatorPublicKey string `json:"facilitatorPublicKey,omitempty"`
	Blockhash            string `json:"blockhash,omitempty"`
	FeePaidBy            string `json:"feePaidBy,omitempty"`
	Error                string `json:"error,omitempty"`
}

type settleResponse struct {
	Success                   bool       `json:"success"`
	Transaction               *string    `json:"transaction"`
	Network                   string     `json:"network"`
	Payer                     *string    `json:"payer"`
	ConfirmationStatus        string     `json:"confirmationStatus,omitempty"`
	Slot                      uint64     `json:"slot,omitempty"`
	BlockTime                 *time.Time `json:"blockTime,omitempty"`
	Fees                      *uint64    `json:"fees,omitempty"`
	GasSponsoredByFacilitator bool       `json:"gasSponsoredByFacilitator"`
	UserPaidGas               bool       `json:"userPaidGas"`
	ErrorReason               string     `json:"errorReason,omitempty"`
}

// newRouter wires the facilitator behind its HTTP surface. All failures are
// structured response fields with HTTP 400; nothing propagates as an
// unhandled fault.
func newRouter(f *facilitator.Facilitator, enableMetrics bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/supported", func(c *gin.Context) {
		c.JSON(http.StatusOK, f.Supported())
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, f.Health())
	})

	router.POST("/create-sponsored-transaction", func(c *gin.Context) {
		var req createSponsoredRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, createSponsoredResponse{
				Success: false,
				Error:   "invalid request body: " + err.Error(),
			})
			return
		}

		if err := utils.ValidateRequirements(req.PaymentRequirements); err != nil {
			c.JSON(http.StatusBadRequest, createSponsoredResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}

		tx, err := f.CreateSponsoredTransaction(c.Request.Context(), req.UserPublicKey, req.PaymentRequirements)
		if err != nil {
			c.JSON(http.StatusBadRequest, createSponsoredResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, createSponsoredResponse{
			Success:              true,
			Transaction:          tx.Transaction,
			FacilitatorPublicKey: tx.FacilitatorPublicKey,
			Blockhash:            tx.Blockhash,
			FeePaidBy:            "facilitator",
		})
	})

	router.POST("/verify", func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			reason := "invalid request body: " + err.Error()
			c.JSON(http.StatusBadRequest, verifyResponse{IsValid: false, InvalidReason: &reason})
			return
		}

		requirements, err := utils.ParsePaymentRequirements(req.PaymentRequirements)
		if err != nil {
			reason := err.Error()
			c.JSON(http.StatusBadRequest, verifyResponse{IsValid: false, InvalidReason: &reason})
			return
		}

		result, err := f.Verify(c.Request.Context(), req.PaymentPayload, requirements)
		if err != nil {
			reason := err.Error()
			c.JSON(http.StatusBadRequest, verifyResponse{IsValid: false, InvalidReason: &reason})
			return
		}

		if !result.IsValid {
			reason := result.InvalidReason
			c.JSON(http.StatusBadRequest, verifyResponse{IsValid: false, InvalidReason: &reason})
			return
		}

		c.JSON(http.StatusOK, verifyResponse{
			IsValid:                   true,
			InvalidReason:             nil,
			Payer:                     result.Payer,
			GasSponsoredByFacilitator: result.GasSponsoredByFacilitator,
		})
	})

	router.POST("/settle", func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, settleResponse{
				Success:     false,
				ErrorReason: "invalid request body: " + err.Error(),
			})
			return
		}

		requirements, err := utils.ParsePaymentRequirements(req.PaymentRequirements)
		if err != nil {
			c.JSON(http.StatusBadRequest, settleResponse{
				Success:     false,
				ErrorReason: err.Error(),
			})
			return
		}

		result, err := f.Settle(c.Request.Context(), req.PaymentPayload, requirements)
		if err != nil {
			c.JSON(http.StatusBadRequest, settleResponse{
				Success:     false,
				ErrorReason: err.Error(),
			})
			return
		}

		resp := settleResponse{
			Success:                   result.Success,
			Network:                   result.Network,
			GasSponsoredByFacilitator: result.GasSponsored,
			UserPaidGas:               !result.GasSponsored,
			ErrorReason:               result.ErrorReason,
		}
		if result.Payer != "" {
			payer := result.Payer
			resp.Payer = &payer
		}
		// Surface the best-known signature even on failure so the caller can
		// re-query an undecided attempt.
		if result.Receipt != nil {
			if result.Receipt.Signature != "" {
				sig := result.Receipt.Signature
				resp.Transaction = &sig
			}
			resp.ConfirmationStatus = string(result.Receipt.ConfirmationStatus)
			resp.Slot = result.Receipt.Slot
			resp.BlockTime = result.Receipt.BlockTime
			resp.Fees = result.Receipt.FeesPaid
		}

		if !result.Success {
			c.JSON(http.StatusBadRequest, resp)
			return
		}

		c.JSON(http.StatusOK, resp)
	})

	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return router
}
