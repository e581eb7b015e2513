package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, branch_id, order_number, service_type, status, customer_name, customer_phone,
	delivery_address, notes, subtotal, delivery_fee, total, created_by, created_at, updated_at,
	confirmed_at, preparing_at, ready_at, dispatched_at, delivered_at, cancelled_at, cancel_reason`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.BranchID,
		&i.OrderNumber,
		&i.ServiceType,
		&i.Status,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.DeliveryAddress,
		&i.Notes,
		&i.Subtotal,
		&i.DeliveryFee,
		&i.Total,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ConfirmedAt,
		&i.PreparingAt,
		&i.ReadyAt,
		&i.DispatchedAt,
		&i.DeliveredAt,
		&i.CancelledAt,
		&i.CancelReason,
	)
	return i, err
}

const getNextOrderNumber = `-- name: GetNextOrderNumber :one
SELECT (COALESCE(MAX(CAST(SUBSTRING(order_number FROM 2) AS INT)), 0) + 1)::INT
FROM orders
WHERE branch_id = $1
`

func (q *Queries) GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderNumber, branchID).Scan(&n)
	return n, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (branch_id, order_number, service_type, customer_name, customer_phone,
	delivery_address, notes, subtotal, delivery_fee, total, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	BranchID        uuid.UUID      `json:"branch_id"`
	OrderNumber     string         `json:"order_number"`
	ServiceType     ServiceType    `json:"service_type"`
	CustomerName    pgtype.Text    `json:"customer_name"`
	CustomerPhone   pgtype.Text    `json:"customer_phone"`
	DeliveryAddress pgtype.Text    `json:"delivery_address"`
	Notes           pgtype.Text    `json:"notes"`
	Subtotal        pgtype.Numeric `json:"subtotal"`
	DeliveryFee     pgtype.Numeric `json:"delivery_fee"`
	Total           pgtype.Numeric `json:"total"`
	CreatedBy       pgtype.UUID    `json:"created_by"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.BranchID,
		arg.OrderNumber,
		arg.ServiceType,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.DeliveryAddress,
		arg.Notes,
		arg.Subtotal,
		arg.DeliveryFee,
		arg.Total,
		arg.CreatedBy,
	))
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, menu_item_id, item_name, quantity, unit_price, subtotal, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, menu_item_id, item_name, quantity, unit_price, subtotal, notes
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	ItemName   string         `json:"item_name"`
	Quantity   int32          `json:"quantity"`
	UnitPrice  pgtype.Numeric `json:"unit_price"`
	Subtotal   pgtype.Numeric `json:"subtotal"`
	Notes      pgtype.Text    `json:"notes"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.ItemName,
		arg.Quantity,
		arg.UnitPrice,
		arg.Subtotal,
		arg.Notes,
	)
	return scanOrderItem(row)
}

func scanOrderItem(row interface{ Scan(...any) error }) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.ItemName,
		&i.Quantity,
		&i.UnitPrice,
		&i.Subtotal,
		&i.Notes,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND branch_id = $2
`

type GetOrderParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.BranchID))
}

const getOrderByID = `-- name: GetOrderByID :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
`

// GetOrderByID is used by the public tracking endpoint, which has no branch
// scope. The order id acts as the bearer secret.
func (q *Queries) GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE branch_id = $1
  AND ($2::order_status IS NULL OR status = $2)
  AND ($3::service_type IS NULL OR service_type = $3)
  AND ($4::timestamptz IS NULL OR created_at >= $4)
  AND ($5::timestamptz IS NULL OR created_at < $5)
ORDER BY created_at DESC
LIMIT $6 OFFSET $7
`

type ListOrdersParams struct {
	BranchID    uuid.UUID          `json:"branch_id"`
	Status      NullOrderStatus    `json:"status"`
	ServiceType NullServiceType    `json:"service_type"`
	StartDate   pgtype.Timestamptz `json:"start_date"`
	EndDate     pgtype.Timestamptz `json:"end_date"`
	Limit       int32              `json:"limit"`
	Offset      int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.BranchID,
		arg.Status,
		arg.ServiceType,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, menu_item_id, item_name, quantity, unit_price, subtotal, notes
FROM order_items
WHERE order_id = $1
ORDER BY item_name, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $3::order_status,
    updated_at = now(),
    confirmed_at  = CASE WHEN $3::order_status = 'confirmado'     THEN now() ELSE confirmed_at END,
    preparing_at  = CASE WHEN $3::order_status = 'en_preparacion' THEN now() ELSE preparing_at END,
    ready_at      = CASE WHEN $3::order_status = 'listo'          THEN now() ELSE ready_at END,
    dispatched_at = CASE WHEN $3::order_status = 'en_camino'      THEN now() ELSE dispatched_at END,
    delivered_at  = CASE WHEN $3::order_status = 'entregado'      THEN now() ELSE delivered_at END,
    cancelled_at  = CASE WHEN $3::order_status = 'cancelado'      THEN now() ELSE cancelled_at END,
    cancel_reason = COALESCE($5, cancel_reason)
WHERE id = $1 AND branch_id = $2 AND status = $4
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID            uuid.UUID   `json:"id"`
	BranchID      uuid.UUID   `json:"branch_id"`
	Status        OrderStatus `json:"status"`
	CurrentStatus OrderStatus `json:"current_status"`
	CancelReason  pgtype.Text `json:"cancel_reason"`
}

// UpdateOrderStatus only matches while the row is still in CurrentStatus, so
// a concurrent transition yields pgx.ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.BranchID,
		arg.Status,
		arg.CurrentStatus,
		arg.CancelReason,
	))
}

const createOrderStatusHistory = `-- name: CreateOrderStatusHistory :one
INSERT INTO order_status_history (order_id, from_status, to_status, changed_by)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, from_status, to_status, changed_by, changed_at
`

type CreateOrderStatusHistoryParams struct {
	OrderID    uuid.UUID       `json:"order_id"`
	FromStatus NullOrderStatus `json:"from_status"`
	ToStatus   OrderStatus     `json:"to_status"`
	ChangedBy  pgtype.UUID     `json:"changed_by"`
}

func (q *Queries) CreateOrderStatusHistory(ctx context.Context, arg CreateOrderStatusHistoryParams) (OrderStatusHistory, error) {
	row := q.db.QueryRow(ctx, createOrderStatusHistory,
		arg.OrderID,
		arg.FromStatus,
		arg.ToStatus,
		arg.ChangedBy,
	)
	var i OrderStatusHistory
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.FromStatus,
		&i.ToStatus,
		&i.ChangedBy,
		&i.ChangedAt,
	)
	return i, err
}

const listOrderStatusHistory = `-- name: ListOrderStatusHistory :many
SELECT id, order_id, from_status, to_status, changed_by, changed_at
FROM order_status_history
WHERE order_id = $1
ORDER BY changed_at, id
`

func (q *Queries) ListOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]OrderStatusHistory, error) {
	rows, err := q.db.Query(ctx, listOrderStatusHistory, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderStatusHistory
	for rows.Next() {
		var i OrderStatusHistory
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.FromStatus,
			&i.ToStatus,
			&i.ChangedBy,
			&i.ChangedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// --- Menu ---

const menuItemColumns = `id, branch_id, category, name, price, is_available, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...any) error }) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.BranchID,
		&i.Category,
		&i.Name,
		&i.Price,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenuItemsByBranch = `-- name: ListMenuItemsByBranch :many
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE branch_id = $1
ORDER BY category, name
`

func (q *Queries) ListMenuItemsByBranch(ctx context.Context, branchID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItemsByBranch, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (branch_id, category, name, price)
VALUES ($1, $2, $3, $4)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	BranchID uuid.UUID      `json:"branch_id"`
	Category string         `json:"category"`
	Name     string         `json:"name"`
	Price    pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem, arg.BranchID, arg.Category, arg.Name, arg.Price))
}

const updateMenuItemAvailability = `-- name: UpdateMenuItemAvailability :one
UPDATE menu_items SET is_available = $3, updated_at = now()
WHERE id = $1 AND branch_id = $2
RETURNING ` + menuItemColumns

type UpdateMenuItemAvailabilityParams struct {
	ID          uuid.UUID `json:"id"`
	BranchID    uuid.UUID `json:"branch_id"`
	IsAvailable bool      `json:"is_available"`
}

func (q *Queries) UpdateMenuItemAvailability(ctx context.Context, arg UpdateMenuItemAvailabilityParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItemAvailability, arg.ID, arg.BranchID, arg.IsAvailable))
}

const getMenuItemForOrder = `-- name: GetMenuItemForOrder :one
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE id = $1 AND branch_id = $2 AND is_available = true
`

type GetMenuItemForOrderParams struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branch_id"`
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItemForOrder, arg.ID, arg.BranchID))
}
