package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/emontalvo/tienda-storefront/internal/api/middleware"
	"github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/models"
	service "github.com/emontalvo/tienda-storefront/internal/services"
	"github.com/emontalvo/tienda-storefront/internal/utils"
	"github.com/emontalvo/tienda-storefront/internal/utils/response"
	"github.com/emontalvo/tienda-storefront/pkg/gateway"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Stripe caps webhook payloads at 64KB; anything larger is not ours.
const maxWebhookBody = 65536

type PaymentHandler struct {
	orderService service.OrderService
	gateway      gateway.Client
	validator    *validator.Validate
}

func NewPaymentHandler(orderService service.OrderService, gatewayClient gateway.Client) *PaymentHandler {
	return &PaymentHandler{orderService: orderService, gateway: gatewayClient, validator: validator.New()}
}

// RequestPayment godoc
//
//	@Summary	Open a payment attempt and get the gateway redirect
//	@Tags		payments
//	@Produce	json
//	@Param		id	path	string	true	"Order ID"
//	@Success	200	{object}	response.APIResponse
//	@Failure	400	{object}	response.APIResponse
//	@Failure	502	{object}	response.APIResponse
//	@Router		/orders/{id}/payments [post]
func (h *PaymentHandler) RequestPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		orderID, err := utils.ParseUUID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		result, err := h.orderService.RequestPayment(r.Context(), orderID)
		if err != nil {
			logger.Error("Failed to initiate payment",
				slog.String("orderId", orderID.String()),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		logger.Info("Payment initiated",
			slog.String("paymentId", result.Payment.ID.String()),
			slog.String("orderId", orderID.String()))
		response.Success(w, http.StatusOK, result)
	}
}

// ConfirmPayment is the staff fallback for when a webhook never arrives,
// e.g. the gateway settled but the delivery kept failing.
func (h *PaymentHandler) ConfirmPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		paymentID, err := utils.ParseUUID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		var req models.ConfirmPaymentRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		payment, err := h.orderService.ConfirmPayment(r.Context(), paymentID, req.ExternalReference)
		if err != nil {
			logger.Error("Payment confirmation failed",
				slog.String("paymentId", paymentID.String()),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, payment)
	}
}

// ListPayments shows every attempt recorded against an order, including
// failed ones kept for audit.
func (h *PaymentHandler) ListPayments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		orderID, err := utils.ParseUUID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		payments, err := h.orderService.ListPayments(r.Context(), orderID)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, payments)
	}
}

// Webhook handles gateway notifications. A completed checkout session
// carries the payment id as its client reference; the session id becomes
// the payment's external reference.
func (h *PaymentHandler) Webhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			response.Error(w, errors.BadRequestError("Failed to read webhook payload"))

			return
		}

		event, err := h.gateway.VerifyWebhookSignature(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			logger.Warn("Webhook signature verification failed", slog.String("error", err.Error()))
			response.Error(w, errors.UnauthorizedError("Invalid webhook signature"))

			return
		}

		switch event.Type {
		case "checkout.session.completed", "checkout.session.async_payment_succeeded":
			h.handleSessionSettled(w, r, logger, event, true)
		case "checkout.session.async_payment_failed", "checkout.session.expired":
			h.handleSessionSettled(w, r, logger, event, false)
		default:
			logger.Info("Ignoring webhook event", slog.String("type", string(event.Type)))
			response.Success(w, http.StatusOK, map[string]string{"status": "ignored"})
		}
	}
}

func (h *PaymentHandler) handleSessionSettled(w http.ResponseWriter, r *http.Request,
	logger *slog.Logger, event gateway.Event, succeeded bool) {

	var session struct {
		ID                string `json:"id"`
		ClientReferenceID string `json:"client_reference_id"`
	}

	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		response.Error(w, errors.BadRequestError("Malformed webhook event"))

		return
	}

	paymentID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		logger.Warn("Webhook session without a payment reference", slog.String("sessionId", session.ID))
		response.Error(w, errors.BadRequestError("Unknown payment reference"))

		return
	}

	if !succeeded {
		if err := h.orderService.RejectPayment(r.Context(), paymentID, session.ID); err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, map[string]string{"status": "rejected"})

		return
	}

	payment, err := h.orderService.ConfirmPayment(r.Context(), paymentID, session.ID)
	if err != nil {
		logger.Error("Webhook confirmation failed",
			slog.String("paymentId", paymentID.String()),
			slog.String("error", err.Error()))
		response.Error(w, err)

		return
	}

	logger.Info("Webhook confirmed payment",
		slog.String("paymentId", payment.ID.String()),
		slog.String("sessionId", session.ID))
	response.Success(w, http.StatusOK, map[string]string{"status": "confirmed"})
}
