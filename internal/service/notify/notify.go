// Package notify implements charging.Notifier: it turns a completed
// Bill into a rendered PDF receipt and an emailed notification to the
// owning driver, grounded in the teacher's email.Service.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/service/billing"
	"github.com/evstation/charge-station/internal/service/email"
	"github.com/evstation/charge-station/internal/station"
)

// BillNotifier implements charging.Notifier.
type BillNotifier struct {
	st    *station.Station
	email *email.Service
	log   *zap.Logger
}

func New(st *station.Station, emailSvc *email.Service, log *zap.Logger) *BillNotifier {
	return &BillNotifier{st: st, email: emailSvc, log: log}
}

// NotifyBillCompleted renders the PDF receipt and emails it to the
// car's owning driver, if one has a ContactEmail on file. A driver
// with no email address configured is a normal, silent no-op.
func (n *BillNotifier) NotifyBillCompleted(ctx context.Context, bill domain.Bill) {
	if n.email == nil {
		return
	}
	user, ok := n.findOwner(bill.CarID)
	if !ok || user.ContactEmail == "" {
		return
	}

	receipt, err := billing.RenderReceipt(bill)
	if err != nil {
		n.log.Warn("failed to render receipt pdf", zap.String("bill_id", bill.BillID), zap.Error(err))
		receipt = nil
	}

	if err := n.email.SendBillCompleted(ctx, &user, &bill, receipt); err != nil {
		n.log.Warn("failed to send bill completion email", zap.String("bill_id", bill.BillID), zap.Error(err))
	}
}

func (n *BillNotifier) findOwner(carID string) (domain.User, bool) {
	for _, u := range n.st.Users.GetAll() {
		if u.Car.CarID == carID {
			return u, true
		}
	}
	return domain.User{}, false
}
