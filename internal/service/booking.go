package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"natours/internal/core/errs"
	"natours/internal/core/payment"
	"natours/internal/domain"
	"natours/pkg/utils"
)

// receiptRoles 可以查看任何人的收据
var receiptRoles = domain.Roles(domain.RoleAdmin, domain.RoleLeadGuide)

type BookingService struct {
	Bookings domain.BookingRepository
	Tours    domain.TourRepository
	Users    domain.UserRepository
	Gateway  payment.Gateway
	Log      *zap.Logger
	BaseURL  string
}

// Checkout 为当前用户创建某个团的支付会话
func (s *BookingService) Checkout(ctx context.Context, u *domain.User, tourID string) (*payment.Session, error) {
	t, err := s.Tours.FindByID(ctx, tourID)
	if err != nil {
		return nil, err
	}
	req := payment.CheckoutRequest{
		ReferenceID:   t.ID,
		CustomerEmail: u.Email,
		Name:          t.Name + " Tour",
		Description:   t.Summary,
		Amount:        t.Price,
		SuccessURL:    s.BaseURL + "/my-tours?alert=booking",
		CancelURL:     s.BaseURL + "/tour/" + t.Slug,
	}
	if t.ImageCover != "" {
		req.ImageURL = s.BaseURL + "/img/tours/" + t.ImageCover
	}
	sess, err := s.Gateway.CreateCheckout(ctx, req)
	if errors.Is(err, payment.ErrNotConfigured) {
		return nil, errs.Wrap(errs.KindUnavailable, "Payments are currently unavailable.", err)
	}
	if err != nil {
		return nil, errs.Internal("create checkout session failed", err)
	}
	return sess, nil
}

// HandleWebhook 校验签名；checkout 完成事件落一条预订，价格取团的当前价格
func (s *BookingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.Gateway.VerifyEvent(payload, signature)
	if err != nil {
		return errs.BadRequest("Webhook error: " + err.Error())
	}
	if ev.Type != payment.EventCheckoutCompleted {
		return nil
	}

	obj := gjson.ParseBytes(ev.Object)
	tourID := obj.Get("client_reference_id").String()
	email := obj.Get("customer_email").String()
	if email == "" {
		email = obj.Get("customer_details.email").String()
	}
	if tourID == "" || email == "" {
		return errs.BadRequest("Webhook error: missing client_reference_id or customer_email")
	}

	t, err := s.Tours.FindByID(ctx, tourID)
	if err != nil {
		return err
	}
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	b := &domain.Booking{ID: utils.NewID(), TourID: t.ID, UserID: u.ID, Price: t.Price, Paid: true}
	if err := s.Bookings.Create(ctx, b); err != nil {
		return err
	}
	bookingsTotal.WithLabelValues("checkout").Inc()
	s.Log.Info("booking created", zap.String("event", ev.ID), zap.String("tour", t.ID), zap.String("user", u.ID))
	return nil
}

// MyTours 当前用户预订过的团
func (s *BookingService) MyTours(ctx context.Context, userID string) ([]domain.Tour, error) {
	bs, err := s.Bookings.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	ids := make([]string, 0, len(bs))
	for _, b := range bs {
		if !seen[b.TourID] {
			seen[b.TourID] = true
			ids = append(ids, b.TourID)
		}
	}
	if len(ids) == 0 {
		return []domain.Tour{}, nil
	}
	return s.Tours.FindByIDs(ctx, ids)
}

// Receipt 本人或 admin/lead-guide 可以下载
func (s *BookingService) Receipt(ctx context.Context, u *domain.User, bookingID string) ([]byte, error) {
	b, err := s.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != u.ID && !receiptRoles.Has(u.Role) {
		return nil, errs.Forbidden("You do not have permission to perform this action")
	}
	return renderReceipt(b)
}

func renderReceipt(b *domain.Booking) ([]byte, error) {
	tourName, customer, email := b.TourID, b.UserID, ""
	if b.Tour != nil {
		tourName = b.Tour.Name
	}
	if b.Customer != nil {
		customer, email = b.Customer.Name, b.Customer.Email
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Natours receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "NATOURS RECEIPT")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Booking : " + b.ID,
		"Date    : " + b.CreatedAt.UTC().Format(time.DateOnly),
		"Tour    : " + tourName,
		"Customer: " + customer,
		"Email   : " + email,
	} {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	status := "UNPAID"
	if b.Paid {
		status = "PAID"
	}
	pdf.Cell(0, 8, fmt.Sprintf("Total: $%.2f (%s)", b.Price, status))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Thank you for booking with Natours. Have a great adventure!", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errs.Internal("render receipt failed", err)
	}
	return buf.Bytes(), nil
}
