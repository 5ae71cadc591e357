package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/klasshero/backend/core/enrollment"
	"github.com/klasshero/backend/core/user"
)

type bookingApi struct {
	svc    enrollment.Service
	usrSvc user.Service
}

func registerBookingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc enrollment.Service, usrSvc user.Service) {
	api := bookingApi{svc: svc, usrSvc: usrSvc}

	g.POST("/programs/:id/quote", api.quote, jwt, parentMiddleware())

	bg := g.Group("/bookings", jwt, parentMiddleware())
	bg.GET("/usage", api.usage)
	bg.POST("", api.book)
	bg.GET("", api.query)
	bg.GET("/:id", api.retrieve)
	bg.DELETE("/:id", api.cancel)
}

// QuoteResponse carries a fee breakdown as fixed 2-decimal strings.
type QuoteResponse struct {
	Subtotal      string `json:"subtotal"`
	VATAmount     string `json:"vat_amount"`
	CardFeeAmount string `json:"card_fee_amount"`
	Total         string `json:"total"`
}

func newQuoteResponse(q enrollment.Quote) QuoteResponse {
	return QuoteResponse{
		Subtotal:      q.Subtotal.StringFixed(2),
		VATAmount:     q.VATAmount.StringFixed(2),
		CardFeeAmount: q.CardFeeAmount.StringFixed(2),
		Total:         q.Total.StringFixed(2),
	}
}

// UsageResponse is the parent's monthly quota standing. Cap and Remaining
// read "unlimited" on uncapped tiers.
type UsageResponse struct {
	Tier      string `json:"tier"`
	Cap       string `json:"cap"`
	Used      int    `json:"used"`
	Remaining string `json:"remaining"`
}

func newUsageResponse(info enrollment.UsageInfo) UsageResponse {
	res := UsageResponse{Tier: string(info.Tier), Used: info.Used}
	if info.Unlimited {
		res.Cap = "unlimited"
		res.Remaining = "unlimited"
	} else {
		res.Cap = strconv.Itoa(info.Cap)
		res.Remaining = strconv.Itoa(info.Remaining)
	}
	return res
}

// BookingResponse is an Enrollment with its frozen amounts as fixed
// 2-decimal strings.
type BookingResponse struct {
	ID            string `json:"id"`
	ParentID      string `json:"parent_id"`
	ChildID       string `json:"child_id"`
	ProgramID     string `json:"program_id"`
	PaymentMethod string `json:"payment_method"`
	Subtotal      string `json:"subtotal"`
	VATAmount     string `json:"vat_amount"`
	CardFeeAmount string `json:"card_fee_amount"`
	Total         string `json:"total"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

func newBookingResponse(enr enrollment.Enrollment) BookingResponse {
	return BookingResponse{
		ID:            enr.ID,
		ParentID:      enr.ParentID,
		ChildID:       enr.ChildID,
		ProgramID:     enr.ProgramID,
		PaymentMethod: string(enr.PaymentMethod),
		Subtotal:      enr.Subtotal.StringFixed(2),
		VATAmount:     enr.VATAmount.StringFixed(2),
		CardFeeAmount: enr.CardFeeAmount.StringFixed(2),
		Total:         enr.Total.StringFixed(2),
		Status:        string(enr.Status),
		CreatedAt:     enr.CreatedAt.Format(time.RFC3339),
	}
}

// Handlers

func (api *bookingApi) quote(ctx echo.Context) error {
	var data QuoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuoteRequest")
	}

	method, err := enrollment.ParsePaymentMethod(data.PaymentMethod)
	if err != nil {
		return err
	}

	quote, err := api.svc.QuoteProgram(ctx.Request().Context(), ctx.Param("id"), method)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newQuoteResponse(quote))
}

func (api *bookingApi) usage(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	info, err := api.svc.GetUsage(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newUsageResponse(info))
}

func (api *bookingApi) book(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data enrollment.NewBooking
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBooking")
	}

	enr, err := api.svc.Book(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newBookingResponse(enr))
}

func (api *bookingApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enrollments, err := api.svc.QueryByParent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}

	res := make([]BookingResponse, 0, len(enrollments))
	for _, enr := range enrollments {
		res = append(res, newBookingResponse(enr))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *bookingApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newBookingResponse(enr))
}

func (api *bookingApi) cancel(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Cancel(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type QuoteRequest struct {
	PaymentMethod string `json:"payment_method"`
}
