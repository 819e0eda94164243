package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armahpen/backend-smilepill/internal/auth"
	"github.com/armahpen/backend-smilepill/internal/cart"
	"github.com/armahpen/backend-smilepill/internal/catalog"
	"github.com/armahpen/backend-smilepill/internal/orders"
	"github.com/armahpen/backend-smilepill/internal/prescriptions"
	"github.com/armahpen/backend-smilepill/internal/users"
)

// In-memory fakes standing in for the Postgres-backed data layer. They mirror
// its contract: sql.ErrNoRows for missing rows, accumulate-on-add carts.

type fakeUserStore struct {
	byID  map[string]users.User
	perms map[string]map[users.Permission]bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:  map[string]users.User{},
		perms: map[string]map[users.Permission]bool{},
	}
}

func (f *fakeUserStore) GetUser(_ context.Context, id string) (users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return users.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (users.User, error) {
	for _, u := range f.byID {
		if u.Username != nil && *u.Username == username {
			return u, nil
		}
	}
	return users.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (users.User, error) {
	for _, u := range f.byID {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return users.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) CreateUser(_ context.Context, nu users.NewUser) (users.User, error) {
	u := users.User{
		ID:           uuid.NewString(),
		Username:     &nu.Username,
		Email:        &nu.Email,
		PasswordHash: &nu.PasswordHash,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) ListUsers(_ context.Context) ([]users.User, error) {
	list := make([]users.User, 0, len(f.byID))
	for _, u := range f.byID {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (f *fakeUserStore) GetUserWithPermissions(_ context.Context, id string) (users.UserWithPermissions, error) {
	u, ok := f.byID[id]
	if !ok {
		return users.UserWithPermissions{}, sql.ErrNoRows
	}
	out := users.UserWithPermissions{User: u, Permissions: []users.AdminPermission{}}
	for p := range f.perms[id] {
		out.Permissions = append(out.Permissions, users.AdminPermission{ID: uuid.NewString(), UserID: id, Permission: p})
	}
	return out, nil
}

func (f *fakeUserStore) SetUserAdmin(_ context.Context, id string, isAdmin bool, role *string) (users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return users.User{}, sql.ErrNoRows
	}
	u.IsAdmin = isAdmin
	u.AdminRole = role
	f.byID[id] = u
	return u, nil
}

func (f *fakeUserStore) HasAdminPermission(_ context.Context, userID string, permission users.Permission) (bool, error) {
	return f.perms[userID][permission], nil
}

func (f *fakeUserStore) AddAdminPermission(_ context.Context, userID string, permission users.Permission) (users.AdminPermission, error) {
	if _, ok := f.byID[userID]; !ok {
		return users.AdminPermission{}, sql.ErrNoRows
	}
	if f.perms[userID] == nil {
		f.perms[userID] = map[users.Permission]bool{}
	}
	f.perms[userID][permission] = true
	return users.AdminPermission{ID: uuid.NewString(), UserID: userID, Permission: permission}, nil
}

func (f *fakeUserStore) RemoveAdminPermission(_ context.Context, userID string, permission users.Permission) error {
	delete(f.perms[userID], permission)
	return nil
}

type fakeCatalogStore struct {
	products map[string]catalog.Product
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{products: map[string]catalog.Product{}}
}

func (f *fakeCatalogStore) GetProducts(_ context.Context, _ catalog.ProductFilters) ([]catalog.Product, error) {
	list := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (f *fakeCatalogStore) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeCatalogStore) GetProductBySlug(_ context.Context, slug string) (catalog.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return catalog.Product{}, sql.ErrNoRows
}

func (f *fakeCatalogStore) CreateProduct(_ context.Context, np catalog.NewProduct) (catalog.Product, error) {
	p := catalog.Product{
		ID:                   uuid.NewString(),
		Name:                 np.Name,
		Slug:                 np.Slug,
		Price:                np.Price,
		Dosage:               np.Dosage,
		StockQuantity:        np.StockQuantity,
		RequiresPrescription: np.RequiresPrescription,
		IsActive:             np.IsActive,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeCatalogStore) UpdateProduct(_ context.Context, id string, up catalog.UpdateProduct) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, sql.ErrNoRows
	}
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.Price != nil {
		p.Price = *up.Price
	}
	if up.StockQuantity != nil {
		p.StockQuantity = *up.StockQuantity
	}
	if up.IsActive != nil {
		p.IsActive = *up.IsActive
	}
	f.products[id] = p
	return p, nil
}

func (f *fakeCatalogStore) UpdateProductStock(_ context.Context, id string, quantity int) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, sql.ErrNoRows
	}
	p.StockQuantity = quantity
	f.products[id] = p
	return p, nil
}

func (f *fakeCatalogStore) DeleteProduct(_ context.Context, id string) error {
	if _, ok := f.products[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.products, id)
	return nil
}

func (f *fakeCatalogStore) GetCategories(_ context.Context) ([]catalog.Category, error) {
	return []catalog.Category{}, nil
}

func (f *fakeCatalogStore) GetBrands(_ context.Context) ([]catalog.Brand, error) {
	return []catalog.Brand{}, nil
}

type fakeCartStore struct {
	catalog *fakeCatalogStore
	items   map[string]map[string]cart.CartItem
}

func newFakeCartStore(c *fakeCatalogStore) *fakeCartStore {
	return &fakeCartStore{catalog: c, items: map[string]map[string]cart.CartItem{}}
}

func (f *fakeCartStore) GetCartItems(_ context.Context, userID string) ([]cart.CartItem, error) {
	list := []cart.CartItem{}
	for _, item := range f.items[userID] {
		if p, ok := f.catalog.products[item.ProductID]; ok {
			cp := p
			item.Product = &cp
		}
		list = append(list, item)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ProductID < list[j].ProductID })
	return list, nil
}

func (f *fakeCartStore) AddToCart(_ context.Context, userID, productID string, quantity int) (cart.CartItem, error) {
	if f.items[userID] == nil {
		f.items[userID] = map[string]cart.CartItem{}
	}
	item, ok := f.items[userID][productID]
	if !ok {
		item = cart.CartItem{ID: uuid.NewString(), UserID: userID, ProductID: productID}
	}
	item.Quantity += quantity
	f.items[userID][productID] = item
	return item, nil
}

func (f *fakeCartStore) UpdateCartItem(_ context.Context, userID, productID string, quantity int) (cart.CartItem, error) {
	item, ok := f.items[userID][productID]
	if !ok {
		return cart.CartItem{}, sql.ErrNoRows
	}
	item.Quantity = quantity
	f.items[userID][productID] = item
	return item, nil
}

func (f *fakeCartStore) RemoveFromCart(_ context.Context, userID, productID string) error {
	delete(f.items[userID], productID)
	return nil
}

func (f *fakeCartStore) ClearCart(_ context.Context, userID string) error {
	delete(f.items, userID)
	return nil
}

type fakeOrderStore struct {
	orders map[string]orders.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[string]orders.Order{}}
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, no orders.NewOrder, items []orders.NewOrderItem) (orders.Order, error) {
	o := orders.Order{
		ID:              uuid.NewString(),
		UserID:          no.UserID,
		OrderNumber:     no.OrderNumber,
		Status:          no.Status,
		TotalAmount:     no.TotalAmount,
		ShippingAddress: no.ShippingAddress,
		BillingAddress:  no.BillingAddress,
		PaymentStatus:   no.PaymentStatus,
		Items:           []orders.OrderItem{},
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	for _, item := range items {
		o.Items = append(o.Items, orders.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeOrderStore) GetOrders(_ context.Context, userID string) ([]orders.Order, error) {
	list := []orders.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			list = append(list, o)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id string) (orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, sql.ErrNoRows
	}
	return o, nil
}

func (f *fakeOrderStore) GetOrderByNumber(_ context.Context, orderNumber string) (orders.Order, error) {
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return orders.Order{}, sql.ErrNoRows
}

func (f *fakeOrderStore) UpdateOrderStatus(_ context.Context, id string, status orders.OrderStatus, paymentStatus *orders.PaymentStatus) (orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, sql.ErrNoRows
	}
	o.Status = status
	if paymentStatus != nil {
		o.PaymentStatus = *paymentStatus
	}
	f.orders[id] = o
	return o, nil
}

func (f *fakeOrderStore) AttachPaymentIntent(_ context.Context, id, paymentIntentID string) error {
	o, ok := f.orders[id]
	if !ok {
		return sql.ErrNoRows
	}
	o.StripePaymentIntentID = &paymentIntentID
	f.orders[id] = o
	return nil
}

type fakePrescriptionStore struct {
	list []prescriptions.Prescription
}

func (f *fakePrescriptionStore) CreatePrescription(_ context.Context, np prescriptions.NewPrescription) (prescriptions.Prescription, error) {
	p := prescriptions.Prescription{
		ID:               uuid.NewString(),
		UserID:           np.UserID,
		PatientName:      np.PatientName,
		DoctorName:       np.DoctorName,
		PrescriptionDate: np.PrescriptionDate,
		Medications:      np.Medications,
		ImageURLs:        np.ImageURLs,
		Status:           prescriptions.StatusPending,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	f.list = append(f.list, p)
	return p, nil
}

func (f *fakePrescriptionStore) GetPrescriptions(_ context.Context, userID *string) ([]prescriptions.Prescription, error) {
	out := []prescriptions.Prescription{}
	for _, p := range f.list {
		if userID == nil || p.UserID == *userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePrescriptionStore) UpdatePrescriptionStatus(_ context.Context, id string, status prescriptions.Status, notes *string, reviewerID string) error {
	for i, p := range f.list {
		if p.ID == id {
			now := time.Now().UTC()
			f.list[i].Status = status
			f.list[i].ReviewNotes = notes
			f.list[i].ReviewedBy = &reviewerID
			f.list[i].ReviewedAt = &now
			return nil
		}
	}
	return sql.ErrNoRows
}

type publishedEvent struct {
	topic string
	key   string
	value []byte
}

type fakeEventProducer struct {
	events []publishedEvent
}

func (f *fakeEventProducer) ProduceMessage(topic string, key, value []byte) error {
	f.events = append(f.events, publishedEvent{topic: topic, key: string(key), value: value})
	return nil
}

type testEnv struct {
	router        http.Handler
	keys          *auth.Keys
	users         *fakeUserStore
	catalog       *fakeCatalogStore
	cart          *fakeCartStore
	orders        *fakeOrderStore
	prescriptions *fakePrescriptionStore
	events        *fakeEventProducer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	keys, err := auth.NewKeys("test-secret")
	require.NoError(t, err)

	us := newFakeUserStore()
	cs := newFakeCatalogStore()
	crt := newFakeCartStore(cs)
	os := newFakeOrderStore()
	ps := &fakePrescriptionStore{}
	ev := &fakeEventProducer{}

	router := API(Config{
		Keys:          keys,
		Users:         us,
		Catalog:       cs,
		Cart:          crt,
		Orders:        os,
		Prescriptions: ps,
		Events:        ev,
		Environment:   "test",
	})
	return &testEnv{router: router, keys: keys, users: us, catalog: cs, cart: crt, orders: os, prescriptions: ps, events: ev}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) addUser(t *testing.T, username string, isAdmin bool, perms ...users.Permission) (users.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	email := username + "@example.com"
	u := users.User{ID: uuid.NewString(), Username: &username, Email: &email, PasswordHash: &hash, IsAdmin: isAdmin}
	e.users.byID[u.ID] = u
	for _, p := range perms {
		_, err := e.users.AddAdminPermission(context.Background(), u.ID, p)
		require.NoError(t, err)
	}
	token, err := e.keys.GenerateToken(u.ID, time.Hour)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) addProduct(t *testing.T, name string, price string, stock int) catalog.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(context.Background(), catalog.NewProduct{
		Name: name, Slug: name, Price: price, StockQuantity: stock, IsActive: true,
	})
	require.NoError(t, err)
	return p
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["environment"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Same username again is rejected with a precise message.
	w = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "other@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Username already exists")

	w = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice2", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email already exists")

	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var login map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.NotEmpty(t, login["token"])

	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "ab", "email": "not-an-email", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)
	env.addProduct(t, "paracetamol", "4.99", 10)
	env.addProduct(t, "ibuprofen", "6.50", 5)

	w := env.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Products []catalog.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Products, 2)

	w = env.do(t, http.MethodGet, "/api/products?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProductByIDAndSlug(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(t, "aspirin", "3.25", 8)

	w := env.do(t, http.MethodGet, "/api/products/"+p.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/products/aspirin", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/products/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddToCart(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "bob", false)
	p := env.addProduct(t, "vitamin-c", "9.99", 3)

	w := env.do(t, http.MethodPost, "/api/cart", token, gin.H{"product_id": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	// Accumulates rather than replaces.
	w = env.do(t, http.MethodPost, "/api/cart", token, gin.H{"product_id": p.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Item cart.CartItem `json:"item"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Item.Quantity)

	w = env.do(t, http.MethodPost, "/api/cart", token, gin.H{"product_id": p.ID, "quantity": 10})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/cart", token, gin.H{"product_id": uuid.NewString(), "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/cart", token, gin.H{"product_id": "not-a-uuid", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/cart", token, gin.H{"product_id": p.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderFromCart(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.addUser(t, "carol", false)
	p1 := env.addProduct(t, "med-one", "10.00", 10)
	p2 := env.addProduct(t, "med-two", "2.50", 10)

	_, err := env.cart.AddToCart(context.Background(), u.ID, p1.ID, 2)
	require.NoError(t, err)
	_, err = env.cart.AddToCart(context.Background(), u.ID, p2.ID, 1)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/orders", token, gin.H{
		"shipping_address": gin.H{"line1": "1 Main St", "city": "Accra"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var order orders.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, "22.50", order.TotalAmount)
	assert.Equal(t, orders.StatusPending, order.Status)
	assert.Equal(t, orders.PaymentPending, order.PaymentStatus)
	assert.Len(t, order.Items, 2)
	assert.NotEmpty(t, order.OrderNumber)

	// The cart is cleared once the order exists.
	items, err := env.cart.GetCartItems(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	// An empty cart cannot be ordered.
	w = env.do(t, http.MethodPost, "/api/orders", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrderOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.addUser(t, "dave", false)
	_, otherToken := env.addUser(t, "eve", false)

	o, err := env.orders.CreateOrder(context.Background(), orders.NewOrder{
		UserID: owner.ID, OrderNumber: "SP-1", Status: orders.StatusPending,
		TotalAmount: "5.00", PaymentStatus: orders.PaymentPending,
	}, nil)
	require.NoError(t, err)

	// Someone else's order looks like a missing one, by id or by number.
	w := env.do(t, http.MethodGet, "/api/orders/"+o.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/orders/number/SP-1", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderByNumber(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.addUser(t, "pete", false)
	_, err := env.orders.CreateOrder(context.Background(), orders.NewOrder{
		UserID: u.ID, OrderNumber: "SP-42", Status: orders.StatusPending,
		TotalAmount: "8.00", PaymentStatus: orders.PaymentPending,
	}, nil)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/orders/number/SP-42", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got orders.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "SP-42", got.OrderNumber)

	w = env.do(t, http.MethodGet, "/api/orders/number/SP-404", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookMarksOrderPaid(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.addUser(t, "frank", false)
	o, err := env.orders.CreateOrder(context.Background(), orders.NewOrder{
		UserID: u.ID, OrderNumber: "SP-2", Status: orders.StatusPending,
		TotalAmount: "15.00", PaymentStatus: orders.PaymentPending,
	}, nil)
	require.NoError(t, err)

	event := gin.H{
		"type": "payment_intent.succeeded",
		"data": gin.H{
			"object": gin.H{
				"id":       "pi_123",
				"metadata": gin.H{"order_id": o.ID},
			},
		},
	}
	w := env.do(t, http.MethodPost, "/api/orders/webhook", "", event)
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := env.orders.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusProcessing, updated.Status)
	assert.Equal(t, orders.PaymentPaid, updated.PaymentStatus)
	require.NotNil(t, updated.StripePaymentIntentID)
	assert.Equal(t, "pi_123", *updated.StripePaymentIntentID)

	require.Len(t, env.events.events, 1)
	assert.Equal(t, "order-service.order-paid", env.events.events[0].topic)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/orders/webhook", "", gin.H{"type": "charge.refunded"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.events.events)
}

func TestPrescriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "grace", false)
	admin, adminToken := env.addUser(t, "root", true, users.PermissionViewPrescriptions)

	w := env.do(t, http.MethodPost, "/api/prescriptions/submit", token, gin.H{
		"patient_name":      "Grace Mensah",
		"doctor_name":       "Dr. Osei",
		"prescription_date": "2026-08-01",
		"medications":       "Amoxicillin 500mg",
		"image_urls":        []string{"https://cdn.example.com/rx1.jpg"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, env.prescriptions.list, 1)
	assert.Equal(t, prescriptions.StatusPending, env.prescriptions.list[0].Status)
	rxID := env.prescriptions.list[0].ID

	// Owner sees it, admin queue sees it too.
	w = env.do(t, http.MethodGet, "/api/prescriptions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), rxID)

	w = env.do(t, http.MethodGet, "/api/admin/prescriptions", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Only verified/rejected are acceptable decisions.
	w = env.do(t, http.MethodPut, "/api/admin/prescriptions/"+rxID+"/review", adminToken, gin.H{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/admin/prescriptions/"+rxID+"/review", adminToken, gin.H{
		"status": "verified", "review_notes": "Legible and current",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prescriptions.StatusVerified, env.prescriptions.list[0].Status)
	require.NotNil(t, env.prescriptions.list[0].ReviewedBy)
	assert.Equal(t, admin.ID, *env.prescriptions.list[0].ReviewedBy)

	require.Len(t, env.events.events, 1)
	assert.Equal(t, "prescription-service.prescription-reviewed", env.events.events[0].topic)
}

func TestAdminAuthorizationChain(t *testing.T) {
	env := newTestEnv(t)
	_, plainToken := env.addUser(t, "henry", false)
	_, adminNoPermToken := env.addUser(t, "iris", true)
	_, adminToken := env.addUser(t, "judy", true, users.PermissionAddProducts)

	product := gin.H{"name": "Zinc", "slug": "zinc", "price": "7.00", "is_active": true}

	w := env.do(t, http.MethodPost, "/api/admin/products", "", product)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/products", plainToken, product)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/products", adminNoPermToken, product)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/products", adminToken, product)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAdminProductManagement(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser(t, "kate", true,
		users.PermissionAddProducts, users.PermissionEditProducts)
	p := env.addProduct(t, "folic-acid", "5.00", 4)

	newPrice := "6.25"
	w := env.do(t, http.MethodPut, "/api/admin/products/"+p.ID, token, gin.H{"price": newPrice})
	require.Equal(t, http.StatusOK, w.Code)
	got, err := env.catalog.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, newPrice, got.Price)

	w = env.do(t, http.MethodPut, "/api/admin/products/"+p.ID+"/stock", token, gin.H{"stock_quantity": 42})
	require.Equal(t, http.StatusOK, w.Code)
	got, err = env.catalog.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.StockQuantity)

	w = env.do(t, http.MethodPut, "/api/admin/products/"+p.ID+"/stock", token, gin.H{"stock_quantity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/admin/products/"+p.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, err = env.catalog.GetProduct(context.Background(), p.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	w = env.do(t, http.MethodDelete, "/api/admin/products/"+p.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.addUser(t, "liam", false)
	_, token := env.addUser(t, "mona", true, users.PermissionEditProducts)

	o, err := env.orders.CreateOrder(context.Background(), orders.NewOrder{
		UserID: u.ID, OrderNumber: "SP-3", Status: orders.StatusProcessing,
		TotalAmount: "20.00", PaymentStatus: orders.PaymentPaid,
	}, nil)
	require.NoError(t, err)

	w := env.do(t, http.MethodPut, "/api/admin/orders/"+o.ID+"/status", token, gin.H{"status": "shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	got, err := env.orders.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, got.Status)
	assert.Equal(t, orders.PaymentPaid, got.PaymentStatus)

	w = env.do(t, http.MethodPut, "/api/admin/orders/"+o.ID+"/status", token, gin.H{
		"status": "cancelled", "payment_status": "refunded",
	})
	require.Equal(t, http.StatusOK, w.Code)
	got, err = env.orders.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentRefunded, got.PaymentStatus)

	w = env.do(t, http.MethodPut, "/api/admin/orders/"+o.ID+"/status", token, gin.H{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/admin/orders/"+uuid.NewString()+"/status", token, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	target, _ := env.addUser(t, "nina", false)
	_, token := env.addUser(t, "oscar", true, users.PermissionManageUsers)

	role := "pharmacist"
	w := env.do(t, http.MethodPut, "/api/admin/users/"+target.ID+"/admin", token, gin.H{"is_admin": true, "role": role})
	require.Equal(t, http.StatusOK, w.Code)
	got, err := env.users.GetUser(context.Background(), target.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	require.NotNil(t, got.AdminRole)
	assert.Equal(t, role, *got.AdminRole)

	// Omitting the role clears it.
	w = env.do(t, http.MethodPut, "/api/admin/users/"+target.ID+"/admin", token, gin.H{"is_admin": true})
	require.Equal(t, http.StatusOK, w.Code)
	got, err = env.users.GetUser(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AdminRole)

	w = env.do(t, http.MethodPost, "/api/admin/users/"+target.ID+"/permissions", token, gin.H{"permission": "edit_products"})
	require.Equal(t, http.StatusCreated, w.Code)
	ok, err := env.users.HasAdminPermission(context.Background(), target.ID, users.PermissionEditProducts)
	require.NoError(t, err)
	assert.True(t, ok)

	w = env.do(t, http.MethodPost, "/api/admin/users/"+target.ID+"/permissions", token, gin.H{"permission": "launch_rockets"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/admin/users/"+target.ID+"/permissions/edit_products", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ok, err = env.users.HasAdminPermission(context.Background(), target.ID, users.PermissionEditProducts)
	require.NoError(t, err)
	assert.False(t, ok)

	w = env.do(t, http.MethodGet, "/api/admin/users", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/users/"+target.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
