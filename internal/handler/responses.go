package handler

import (
	"time"

	"github.com/comanda-app/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	BranchID  uuid.UUID `json:"branch_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	HasPin    bool      `json:"has_pin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{
		ID:        u.ID,
		BranchID:  u.BranchID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		HasPin:    u.PinHash.Valid,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

type registerResponse struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
}

func toRegisterResponse(r database.CashRegister) registerResponse {
	return registerResponse{ID: r.ID, BranchID: r.BranchID, Name: r.Name, Kind: string(r.Kind)}
}

type shiftResponse struct {
	ID             uuid.UUID  `json:"id"`
	RegisterID     uuid.UUID  `json:"register_id"`
	BranchID       uuid.UUID  `json:"branch_id"`
	Status         string     `json:"status"`
	OpenedBy       uuid.UUID  `json:"opened_by"`
	OpenedAt       time.Time  `json:"opened_at"`
	OpeningAmount  string     `json:"opening_amount"`
	ClosedBy       *uuid.UUID `json:"closed_by"`
	ClosedAt       *time.Time `json:"closed_at"`
	ClosingAmount  *string    `json:"closing_amount"`
	ExpectedAmount *string    `json:"expected_amount"`
	Discrepancy    *string    `json:"discrepancy"`
	Notes          *string    `json:"notes"`
}

func toShiftResponse(s database.CashShift) shiftResponse {
	return shiftResponse{
		ID:             s.ID,
		RegisterID:     s.RegisterID,
		BranchID:       s.BranchID,
		Status:         string(s.Status),
		OpenedBy:       s.OpenedBy,
		OpenedAt:       s.OpenedAt,
		OpeningAmount:  numericToString(s.OpeningAmount),
		ClosedBy:       uuidPtr(s.ClosedBy),
		ClosedAt:       timestamptzPtr(s.ClosedAt),
		ClosingAmount:  numericPtr(s.ClosingAmount),
		ExpectedAmount: numericPtr(s.ExpectedAmount),
		Discrepancy:    numericPtr(s.Discrepancy),
		Notes:          textPtr(s.Notes),
	}
}

type movementResponse struct {
	ID            uuid.UUID  `json:"id"`
	ShiftID       uuid.UUID  `json:"shift_id"`
	Type          string     `json:"type"`
	Amount        string     `json:"amount"`
	Concept       string     `json:"concept"`
	PaymentMethod string     `json:"payment_method"`
	RecordedBy    uuid.UUID  `json:"recorded_by"`
	AuthorizedBy  *uuid.UUID `json:"authorized_by"`
	TransferID    *uuid.UUID `json:"transfer_id"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toMovementResponse(m database.CashMovement) movementResponse {
	return movementResponse{
		ID:            m.ID,
		ShiftID:       m.ShiftID,
		Type:          string(m.Type),
		Amount:        numericToString(m.Amount),
		Concept:       m.Concept,
		PaymentMethod: string(m.PaymentMethod),
		RecordedBy:    m.RecordedBy,
		AuthorizedBy:  uuidPtr(m.AuthorizedBy),
		TransferID:    uuidPtr(m.TransferID),
		CreatedAt:     m.CreatedAt,
	}
}

type menuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		Category:    m.Category,
		Name:        m.Name,
		Price:       numericToString(m.Price),
		IsAvailable: m.IsAvailable,
	}
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	BranchID        uuid.UUID           `json:"branch_id"`
	OrderNumber     string              `json:"order_number"`
	ServiceType     string              `json:"service_type"`
	Status          string              `json:"status"`
	CustomerName    *string             `json:"customer_name"`
	CustomerPhone   *string             `json:"customer_phone"`
	DeliveryAddress *string             `json:"delivery_address"`
	Notes           *string             `json:"notes"`
	Subtotal        string              `json:"subtotal"`
	DeliveryFee     string              `json:"delivery_fee"`
	Total           string              `json:"total"`
	CreatedAt       time.Time           `json:"created_at"`
	ConfirmedAt     *time.Time          `json:"confirmed_at"`
	PreparingAt     *time.Time          `json:"preparing_at"`
	ReadyAt         *time.Time          `json:"ready_at"`
	DispatchedAt    *time.Time          `json:"dispatched_at"`
	DeliveredAt     *time.Time          `json:"delivered_at"`
	CancelledAt     *time.Time          `json:"cancelled_at"`
	CancelReason    *string             `json:"cancel_reason"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	ItemName   string    `json:"item_name"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	Subtotal   string    `json:"subtotal"`
	Notes      *string   `json:"notes"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		BranchID:        o.BranchID,
		OrderNumber:     o.OrderNumber,
		ServiceType:     string(o.ServiceType),
		Status:          string(o.Status),
		CustomerName:    textPtr(o.CustomerName),
		CustomerPhone:   textPtr(o.CustomerPhone),
		DeliveryAddress: textPtr(o.DeliveryAddress),
		Notes:           textPtr(o.Notes),
		Subtotal:        numericToString(o.Subtotal),
		DeliveryFee:     numericToString(o.DeliveryFee),
		Total:           numericToString(o.Total),
		CreatedAt:       o.CreatedAt,
		ConfirmedAt:     timestamptzPtr(o.ConfirmedAt),
		PreparingAt:     timestamptzPtr(o.PreparingAt),
		ReadyAt:         timestamptzPtr(o.ReadyAt),
		DispatchedAt:    timestamptzPtr(o.DispatchedAt),
		DeliveredAt:     timestamptzPtr(o.DeliveredAt),
		CancelledAt:     timestamptzPtr(o.CancelledAt),
		CancelReason:    textPtr(o.CancelReason),
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = orderItemResponse{
				ID:         it.ID,
				MenuItemID: it.MenuItemID,
				ItemName:   it.ItemName,
				Quantity:   it.Quantity,
				UnitPrice:  numericToString(it.UnitPrice),
				Subtotal:   numericToString(it.Subtotal),
				Notes:      textPtr(it.Notes),
			}
		}
	}
	return resp
}

type statusHistoryResponse struct {
	FromStatus *string    `json:"from_status"`
	ToStatus   string     `json:"to_status"`
	ChangedBy  *uuid.UUID `json:"changed_by"`
	ChangedAt  time.Time  `json:"changed_at"`
}

func toStatusHistoryResponse(h database.OrderStatusHistory) statusHistoryResponse {
	resp := statusHistoryResponse{
		ToStatus:  string(h.ToStatus),
		ChangedBy: uuidPtr(h.ChangedBy),
		ChangedAt: h.ChangedAt,
	}
	if h.FromStatus.Valid {
		s := string(h.FromStatus.OrderStatus)
		resp.FromStatus = &s
	}
	return resp
}

type supplierResponse struct {
	ID             uuid.UUID `json:"id"`
	BranchID       uuid.UUID `json:"branch_id"`
	Name           string    `json:"name"`
	Cuit           *string   `json:"cuit"`
	IsRoyaltyBrand bool      `json:"is_royalty_brand"`
	CreditBalance  string    `json:"credit_balance"`
}

func toSupplierResponse(s database.Supplier) supplierResponse {
	return supplierResponse{
		ID:             s.ID,
		BranchID:       s.BranchID,
		Name:           s.Name,
		Cuit:           textPtr(s.Cuit),
		IsRoyaltyBrand: s.IsRoyaltyBrand,
		CreditBalance:  numericToString(s.CreditBalance),
	}
}

type invoiceResponse struct {
	ID             uuid.UUID `json:"id"`
	SupplierID     uuid.UUID `json:"supplier_id"`
	InvoiceNumber  string    `json:"invoice_number"`
	IssuedAt       string    `json:"issued_at"`
	DueAt          *string   `json:"due_at"`
	Total          string    `json:"total"`
	SaldoPendiente string    `json:"saldo_pendiente"`
	Description    *string   `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

func toInvoiceResponse(inv database.SupplierInvoice) invoiceResponse {
	return invoiceResponse{
		ID:             inv.ID,
		SupplierID:     inv.SupplierID,
		InvoiceNumber:  inv.InvoiceNumber,
		IssuedAt:       inv.IssuedAt.Time.Format(dateLayout),
		DueAt:          datePtr(inv.DueAt),
		Total:          numericToString(inv.Total),
		SaldoPendiente: numericToString(inv.SaldoPendiente),
		Description:    textPtr(inv.Description),
		CreatedAt:      inv.CreatedAt,
	}
}

type paymentLineResponse struct {
	Amount         string `json:"amount"`
	Method         string `json:"method"`
	IsCreditOffset bool   `json:"is_credit_offset"`
}

type paymentResponse struct {
	ID              uuid.UUID             `json:"id"`
	InvoiceID       uuid.UUID             `json:"invoice_id"`
	Total           string                `json:"total"`
	SaldoAnterior   string                `json:"saldo_anterior"`
	SaldoResultante string                `json:"saldo_resultante"`
	CreditGenerated string                `json:"credit_generated"`
	Notes           *string               `json:"notes"`
	PaidBy          uuid.UUID             `json:"paid_by"`
	PaidAt          time.Time             `json:"paid_at"`
	Lines           []paymentLineResponse `json:"lines"`
}

func toPaymentResponse(p database.SupplierPayment, lines []database.SupplierPaymentLine) paymentResponse {
	resp := paymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		Total:           numericToString(p.Total),
		SaldoAnterior:   numericToString(p.SaldoAnterior),
		SaldoResultante: numericToString(p.SaldoResultante),
		CreditGenerated: numericToString(p.CreditGenerated),
		Notes:           textPtr(p.Notes),
		PaidBy:          p.PaidBy,
		PaidAt:          p.PaidAt,
		Lines:           make([]paymentLineResponse, len(lines)),
	}
	for i, l := range lines {
		resp.Lines[i] = paymentLineResponse{
			Amount:         numericToString(l.Amount),
			Method:         string(l.Method),
			IsCreditOffset: l.IsCreditOffset,
		}
	}
	return resp
}

type employeeResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Cuil     *string   `json:"cuil"`
	Category string    `json:"category"`
}

func toEmployeeResponse(e database.Employee) employeeResponse {
	return employeeResponse{ID: e.ID, FullName: e.FullName, Cuil: textPtr(e.Cuil), Category: e.Category}
}

type attendanceResponse struct {
	ID             uuid.UUID  `json:"id"`
	EmployeeID     uuid.UUID  `json:"employee_id"`
	WorkDate       string     `json:"work_date"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	CheckIn        *time.Time `json:"check_in"`
	CheckOut       *time.Time `json:"check_out"`
	Absent         bool       `json:"absent"`
	Justified      bool       `json:"justified"`
}

func toAttendanceResponse(a database.AttendanceRecord) attendanceResponse {
	return attendanceResponse{
		ID:             a.ID,
		EmployeeID:     a.EmployeeID,
		WorkDate:       a.WorkDate.Time.Format(dateLayout),
		ScheduledStart: timestamptzPtr(a.ScheduledStart),
		CheckIn:        timestamptzPtr(a.CheckIn),
		CheckOut:       timestamptzPtr(a.CheckOut),
		Absent:         a.Absent,
		Justified:      a.Justified,
	}
}

// --- pgtype helpers ---

// numericToString renders money with two decimals.
func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func numericPtr(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericToString(n)
	return &s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func datePtr(d pgtype.Date) *string {
	if !d.Valid {
		return nil
	}
	s := d.Time.Format(dateLayout)
	return &s
}
