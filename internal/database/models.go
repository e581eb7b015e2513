package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type UserRole string

const (
	UserRoleADMIN      UserRole = "ADMIN"
	UserRoleENCARGADO  UserRole = "ENCARGADO"
	UserRoleCAJERO     UserRole = "CAJERO"
	UserRoleCOCINA     UserRole = "COCINA"
	UserRoleREPARTIDOR UserRole = "REPARTIDOR"
)

func (e *UserRole) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = UserRole(s)
	case string:
		*e = UserRole(s)
	default:
		return fmt.Errorf("unsupported scan type for UserRole: %T", src)
	}
	return nil
}

type RegisterKind string

const (
	RegisterKindVentas RegisterKind = "ventas"
	RegisterKindAlivio RegisterKind = "alivio"
	RegisterKindFuerte RegisterKind = "fuerte"
)

func (e *RegisterKind) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = RegisterKind(s)
	case string:
		*e = RegisterKind(s)
	default:
		return fmt.Errorf("unsupported scan type for RegisterKind: %T", src)
	}
	return nil
}

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "open"
	ShiftStatusClosed ShiftStatus = "closed"
)

func (e *ShiftStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = ShiftStatus(s)
	case string:
		*e = ShiftStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for ShiftStatus: %T", src)
	}
	return nil
}

type MovementType string

const (
	MovementTypeIncome     MovementType = "income"
	MovementTypeExpense    MovementType = "expense"
	MovementTypeWithdrawal MovementType = "withdrawal"
	MovementTypeDeposit    MovementType = "deposit"
)

func (e *MovementType) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = MovementType(s)
	case string:
		*e = MovementType(s)
	default:
		return fmt.Errorf("unsupported scan type for MovementType: %T", src)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodEfectivo      PaymentMethod = "efectivo"
	PaymentMethodDebito        PaymentMethod = "debito"
	PaymentMethodCredito       PaymentMethod = "credito"
	PaymentMethodTransferencia PaymentMethod = "transferencia"
	PaymentMethodMercadopago   PaymentMethod = "mercadopago"
)

func (e *PaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentMethod(s)
	case string:
		*e = PaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

type TransferKind string

const (
	TransferKindAlivio TransferKind = "alivio"
	TransferKindRetiro TransferKind = "retiro"
)

func (e *TransferKind) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = TransferKind(s)
	case string:
		*e = TransferKind(s)
	default:
		return fmt.Errorf("unsupported scan type for TransferKind: %T", src)
	}
	return nil
}

type OrderStatus string

const (
	OrderStatusPendiente     OrderStatus = "pendiente"
	OrderStatusConfirmado    OrderStatus = "confirmado"
	OrderStatusEnPreparacion OrderStatus = "en_preparacion"
	OrderStatusListo         OrderStatus = "listo"
	OrderStatusEnCamino      OrderStatus = "en_camino"
	OrderStatusEntregado     OrderStatus = "entregado"
	OrderStatusCancelado     OrderStatus = "cancelado"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type NullOrderStatus struct {
	OrderStatus OrderStatus
	Valid       bool // Valid is true if OrderStatus is not NULL
}

// Scan implements the Scanner interface.
func (ns *NullOrderStatus) Scan(value interface{}) error {
	if value == nil {
		ns.OrderStatus, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.OrderStatus.Scan(value)
}

// Value implements the driver Valuer interface.
func (ns NullOrderStatus) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.OrderStatus), nil
}

type ServiceType string

const (
	ServiceTypeDineIn   ServiceType = "dine_in"
	ServiceTypeTakeaway ServiceType = "takeaway"
	ServiceTypeDelivery ServiceType = "delivery"
)

func (e *ServiceType) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = ServiceType(s)
	case string:
		*e = ServiceType(s)
	default:
		return fmt.Errorf("unsupported scan type for ServiceType: %T", src)
	}
	return nil
}

type NullServiceType struct {
	ServiceType ServiceType
	Valid       bool // Valid is true if ServiceType is not NULL
}

// Value implements the driver Valuer interface.
func (ns NullServiceType) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.ServiceType), nil
}

type SupplierPaymentMethod string

const (
	SupplierPaymentMethodEfectivo      SupplierPaymentMethod = "efectivo"
	SupplierPaymentMethodTransferencia SupplierPaymentMethod = "transferencia"
	SupplierPaymentMethodCheque        SupplierPaymentMethod = "cheque"
	SupplierPaymentMethodSaldoAFavor   SupplierPaymentMethod = "saldo_a_favor"
)

func (e *SupplierPaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = SupplierPaymentMethod(s)
	case string:
		*e = SupplierPaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for SupplierPaymentMethod: %T", src)
	}
	return nil
}

type Branch struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug"`
	Address   pgtype.Text `json:"address"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

type User struct {
	ID             uuid.UUID   `json:"id"`
	BranchID       uuid.UUID   `json:"branch_id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Role           UserRole    `json:"role"`
	PinHash        pgtype.Text `json:"pin_hash"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type CashRegister struct {
	ID        uuid.UUID    `json:"id"`
	BranchID  uuid.UUID    `json:"branch_id"`
	Name      string       `json:"name"`
	Kind      RegisterKind `json:"kind"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
}

type CashShift struct {
	ID             uuid.UUID          `json:"id"`
	RegisterID     uuid.UUID          `json:"register_id"`
	BranchID       uuid.UUID          `json:"branch_id"`
	Status         ShiftStatus        `json:"status"`
	OpenedBy       uuid.UUID          `json:"opened_by"`
	OpenedAt       time.Time          `json:"opened_at"`
	OpeningAmount  pgtype.Numeric     `json:"opening_amount"`
	ClosedBy       pgtype.UUID        `json:"closed_by"`
	ClosedAt       pgtype.Timestamptz `json:"closed_at"`
	ClosingAmount  pgtype.Numeric     `json:"closing_amount"`
	ExpectedAmount pgtype.Numeric     `json:"expected_amount"`
	Discrepancy    pgtype.Numeric     `json:"discrepancy"`
	Notes          pgtype.Text        `json:"notes"`
}

type CashTransfer struct {
	ID            uuid.UUID      `json:"id"`
	BranchID      uuid.UUID      `json:"branch_id"`
	Kind          TransferKind   `json:"kind"`
	SourceShiftID uuid.UUID      `json:"source_shift_id"`
	DestShiftID   uuid.UUID      `json:"dest_shift_id"`
	Amount        pgtype.Numeric `json:"amount"`
	CreatedBy     uuid.UUID      `json:"created_by"`
	AuthorizedBy  pgtype.UUID    `json:"authorized_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

type CashMovement struct {
	ID            uuid.UUID      `json:"id"`
	ShiftID       uuid.UUID      `json:"shift_id"`
	Type          MovementType   `json:"type"`
	Amount        pgtype.Numeric `json:"amount"`
	Concept       string         `json:"concept"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	RecordedBy    uuid.UUID      `json:"recorded_by"`
	AuthorizedBy  pgtype.UUID    `json:"authorized_by"`
	TransferID    pgtype.UUID    `json:"transfer_id"`
	CreatedAt     time.Time      `json:"created_at"`
}

type MenuItem struct {
	ID          uuid.UUID      `json:"id"`
	BranchID    uuid.UUID      `json:"branch_id"`
	Category    string         `json:"category"`
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	IsAvailable bool           `json:"is_available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Order struct {
	ID              uuid.UUID          `json:"id"`
	BranchID        uuid.UUID          `json:"branch_id"`
	OrderNumber     string             `json:"order_number"`
	ServiceType     ServiceType        `json:"service_type"`
	Status          OrderStatus        `json:"status"`
	CustomerName    pgtype.Text        `json:"customer_name"`
	CustomerPhone   pgtype.Text        `json:"customer_phone"`
	DeliveryAddress pgtype.Text        `json:"delivery_address"`
	Notes           pgtype.Text        `json:"notes"`
	Subtotal        pgtype.Numeric     `json:"subtotal"`
	DeliveryFee     pgtype.Numeric     `json:"delivery_fee"`
	Total           pgtype.Numeric     `json:"total"`
	CreatedBy       pgtype.UUID        `json:"created_by"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	ConfirmedAt     pgtype.Timestamptz `json:"confirmed_at"`
	PreparingAt     pgtype.Timestamptz `json:"preparing_at"`
	ReadyAt         pgtype.Timestamptz `json:"ready_at"`
	DispatchedAt    pgtype.Timestamptz `json:"dispatched_at"`
	DeliveredAt     pgtype.Timestamptz `json:"delivered_at"`
	CancelledAt     pgtype.Timestamptz `json:"cancelled_at"`
	CancelReason    pgtype.Text        `json:"cancel_reason"`
}

type OrderItem struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	ItemName   string         `json:"item_name"`
	Quantity   int32          `json:"quantity"`
	UnitPrice  pgtype.Numeric `json:"unit_price"`
	Subtotal   pgtype.Numeric `json:"subtotal"`
	Notes      pgtype.Text    `json:"notes"`
}

type OrderStatusHistory struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"order_id"`
	FromStatus NullOrderStatus `json:"from_status"`
	ToStatus   OrderStatus     `json:"to_status"`
	ChangedBy  pgtype.UUID     `json:"changed_by"`
	ChangedAt  time.Time       `json:"changed_at"`
}

type Supplier struct {
	ID             uuid.UUID      `json:"id"`
	BranchID       uuid.UUID      `json:"branch_id"`
	Name           string         `json:"name"`
	Cuit           pgtype.Text    `json:"cuit"`
	IsRoyaltyBrand bool           `json:"is_royalty_brand"`
	CreditBalance  pgtype.Numeric `json:"credit_balance"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type SupplierInvoice struct {
	ID             uuid.UUID      `json:"id"`
	SupplierID     uuid.UUID      `json:"supplier_id"`
	BranchID       uuid.UUID      `json:"branch_id"`
	InvoiceNumber  string         `json:"invoice_number"`
	IssuedAt       pgtype.Date    `json:"issued_at"`
	DueAt          pgtype.Date    `json:"due_at"`
	Total          pgtype.Numeric `json:"total"`
	SaldoPendiente pgtype.Numeric `json:"saldo_pendiente"`
	Description    pgtype.Text    `json:"description"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type SupplierInvoiceCanon struct {
	InvoiceID       uuid.UUID      `json:"invoice_id"`
	VentaTotal      pgtype.Numeric `json:"venta_total"`
	Efectivo        pgtype.Numeric `json:"efectivo"`
	Canon           pgtype.Numeric `json:"canon"`
	Marketing       pgtype.Numeric `json:"marketing"`
	CashPortion     pgtype.Numeric `json:"cash_portion"`
	TransferPortion pgtype.Numeric `json:"transfer_portion"`
}

type SupplierPayment struct {
	ID              uuid.UUID      `json:"id"`
	SupplierID      uuid.UUID      `json:"supplier_id"`
	InvoiceID       uuid.UUID      `json:"invoice_id"`
	Total           pgtype.Numeric `json:"total"`
	SaldoAnterior   pgtype.Numeric `json:"saldo_anterior"`
	SaldoResultante pgtype.Numeric `json:"saldo_resultante"`
	CreditGenerated pgtype.Numeric `json:"credit_generated"`
	Notes           pgtype.Text    `json:"notes"`
	PaidBy          uuid.UUID      `json:"paid_by"`
	PaidAt          time.Time      `json:"paid_at"`
}

type SupplierPaymentLine struct {
	ID             uuid.UUID             `json:"id"`
	PaymentID      uuid.UUID             `json:"payment_id"`
	Amount         pgtype.Numeric        `json:"amount"`
	Method         SupplierPaymentMethod `json:"method"`
	IsCreditOffset bool                  `json:"is_credit_offset"`
}

type Employee struct {
	ID        uuid.UUID   `json:"id"`
	BranchID  uuid.UUID   `json:"branch_id"`
	FullName  string      `json:"full_name"`
	Cuil      pgtype.Text `json:"cuil"`
	Category  string      `json:"category"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

type AttendanceRecord struct {
	ID             uuid.UUID          `json:"id"`
	EmployeeID     uuid.UUID          `json:"employee_id"`
	WorkDate       pgtype.Date        `json:"work_date"`
	ScheduledStart pgtype.Timestamptz `json:"scheduled_start"`
	CheckIn        pgtype.Timestamptz `json:"check_in"`
	CheckOut       pgtype.Timestamptz `json:"check_out"`
	Absent         bool               `json:"absent"`
	Justified      bool               `json:"justified"`
}
