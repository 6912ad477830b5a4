// Package conversation drives the pizza ordering dialogue.
//
// A Machine receives transport-neutral Events, applies them to the sender's
// Session and answers through a Messenger. Events of one user must be handed
// to Handle one at a time; Handle itself also serializes per user through the
// Store, so concurrent calls for different users are safe.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/glebk/pizza-bot/internal/domain"
	"github.com/glebk/pizza-bot/internal/geocode"
	"github.com/glebk/pizza-bot/internal/logging"
)

// Payment constants shared with the payment provider
const (
	PaymentPayload  = "PizzaPayment"
	PaymentCurrency = "RUB"
)

// ErrPaymentNotReady is returned when an invoice is requested before the cart
// total and the delivery fee are known
var ErrPaymentNotReady = errors.New("payment requested before cart total and delivery fee are resolved")

// Dependencies are the collaborators of a Machine
type Dependencies struct {
	Store     *Store
	Messenger Messenger
	Catalog   Catalog
	Carts     Carts
	Images    Images
	Locator   Locator
	Checkout  Checkout
	Logger    *slog.Logger
}

// TransitionHook observes state changes
type TransitionHook func(from, to State)

// Option configures a Machine
type Option func(*Machine)

// WithTransitionHook registers a hook called after every committed state change
func WithTransitionHook(hook TransitionHook) Option {
	return func(m *Machine) {
		m.hooks = append(m.hooks, hook)
	}
}

// WithOrderIDs replaces the order identifier generator
func WithOrderIDs(next func() string) Option {
	return func(m *Machine) {
		m.newOrderID = next
	}
}

// Machine is the conversation state machine
type Machine struct {
	store     *Store
	messenger Messenger
	catalog   Catalog
	carts     Carts
	images    Images
	locator   Locator
	checkout  Checkout
	logger    *slog.Logger

	hooks      []TransitionHook
	newOrderID func() string
}

// NewMachine creates a Machine
func NewMachine(deps Dependencies, opts ...Option) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	store := deps.Store
	if store == nil {
		store = NewStore()
	}

	m := &Machine{
		store:      store,
		messenger:  deps.Messenger,
		catalog:    deps.Catalog,
		carts:      deps.Carts,
		images:     deps.Images,
		locator:    deps.Locator,
		checkout:   deps.Checkout,
		logger:     logger.With("component", "conversation"),
		newOrderID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the session store
func (m *Machine) Store() *Store {
	return m.store
}

// turn is the context of one event being applied to one session
type turn struct {
	ctx      context.Context
	ev       Event
	s        *Session
	answered bool
}

// Handle applies ev to the sender's session.
// On error the session is left as it was and the user receives an apology.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	var from, to State
	t := &turn{ctx: ctx, ev: ev}

	err := m.store.WithSession(ev.UserID, func(s *Session) error {
		t.s = s
		from = s.State
		if err := m.dispatch(t); err != nil {
			return err
		}
		to = s.State
		if to == Done {
			*s = Session{}
		}
		return nil
	})

	if ev.Kind == EventCallback && !t.answered {
		text := ""
		if err != nil && !errors.Is(err, ErrUnknownAction) {
			text = apologyText(err)
		}
		if aerr := m.messenger.AnswerCallback(ev.CallbackID, text, false); aerr != nil {
			m.logger.Warn("failed to answer callback", "user_id", ev.UserID, "error", aerr)
		}
	}

	if err != nil {
		m.logger.Warn("event failed", "user_id", ev.UserID, "kind", ev.Kind.String(), "state", from.String(), "error", err)
		if ev.Kind != EventCallback {
			m.apologize(ev, err)
		}
		return err
	}

	if from != to {
		m.logger.Debug("transition", "user_id", ev.UserID, "from", from.String(), "to", to.String())
		for _, hook := range m.hooks {
			hook(from, to)
		}
	}
	return nil
}

func (m *Machine) apologize(ev Event, err error) {
	if ev.Kind == EventPreCheckout || ev.ChatID == 0 {
		return
	}
	if serr := m.messenger.SendMessage(ev.ChatID, apologyText(err), nil); serr != nil {
		m.logger.Warn("failed to send apology", "user_id", ev.UserID, "error", serr)
	}
}

func apologyText(err error) string {
	if errors.Is(err, ErrPaymentNotReady) {
		return textPaymentNotReady
	}
	return textRetry
}

func (m *Machine) dispatch(t *turn) error {
	switch t.ev.Kind {
	case EventCommand:
		return m.handleCommand(t)
	case EventPreCheckout:
		return m.handlePreCheckout(t)
	case EventPaymentSuccess:
		return m.handlePaymentSuccess(t)
	case EventCallback:
		a, err := ParseAction(t.ev.Data)
		if err != nil {
			return err
		}
		return m.handleAction(t, a)
	case EventText, EventLocation:
		return m.handleMessage(t)
	default:
		return fmt.Errorf("unsupported event kind %d", t.ev.Kind)
	}
}

func (m *Machine) handleCommand(t *turn) error {
	switch t.ev.Command {
	case "start":
		return m.start(t)
	case "finish":
		if err := m.send(t, textFarewell, nil); err != nil {
			return err
		}
		t.s.State = Done
		return nil
	default:
		m.logger.Debug("ignoring command", "user_id", t.ev.UserID, "command", t.ev.Command)
		return nil
	}
}

func (m *Machine) start(t *turn) error {
	*t.s = Session{}
	text := fmt.Sprintf(textGreeting, t.ev.FirstName)
	if err := m.send(t, text, Keyboard{Row("Да, показать меню", ShowMenu{})}); err != nil {
		return err
	}
	t.s.State = ShowingMenu
	return nil
}

// handleAction routes a button press by the current state.
// Presses a state does not accept come from stale messages and change nothing.
func (m *Machine) handleAction(t *turn, a Action) error {
	switch t.s.State {
	case ShowingMenu:
		if _, ok := a.(ShowMenu); ok {
			return m.showMenu(t, BrowsingMenu)
		}
		return m.onBrowsing(t, a)
	case BrowsingMenu:
		return m.onBrowsing(t, a)
	case ViewingProduct:
		return m.onProduct(t, a)
	case ViewingCart:
		return m.onCart(t, a)
	case ChoosingDeliveryMethod, AwaitingPayment:
		return m.onDeliveryMethod(t, a)
	case AwaitingStart:
		return m.answer(t, textSessionExpired, true)
	}
	return m.stale(t, a)
}

func (m *Machine) onBrowsing(t *turn, a Action) error {
	switch a := a.(type) {
	case NextPage:
		t.s.Page++
		return m.showMenu(t, BrowsingMenu)
	case PreviousPage:
		t.s.Page--
		return m.showMenu(t, BrowsingMenu)
	case OpenCart:
		return m.showCart(t)
	case Back:
		return m.showMenu(t, ShowingMenu)
	case SelectProduct:
		return m.showProduct(t, a.ProductID)
	}
	return m.stale(t, a)
}

func (m *Machine) onProduct(t *turn, a Action) error {
	switch a := a.(type) {
	case Back:
		return m.showMenu(t, ShowingMenu)
	case OpenCart:
		return m.showCart(t)
	case AddToCart:
		if err := m.carts.AddToCart(t.ctx, cartID(t.ev.UserID), a.ProductID, 1); err != nil {
			m.logger.Warn("failed to add product to cart", "user_id", t.ev.UserID, "product_id", a.ProductID, "error", err)
			return m.answer(t, textRetry, false)
		}
		return m.answer(t, textAdded, true)
	}
	return m.stale(t, a)
}

func (m *Machine) onCart(t *turn, a Action) error {
	switch a := a.(type) {
	case GetMenu:
		return m.showMenu(t, BrowsingMenu)
	case RemoveItem:
		if err := m.carts.RemoveFromCart(t.ctx, cartID(t.ev.UserID), a.ItemID); err != nil {
			return fmt.Errorf("failed to remove cart item: %w", err)
		}
		return m.showCart(t)
	case CheckOut:
		total, err := m.refreshCartTotal(t)
		if err != nil {
			return err
		}
		if total <= 0 {
			return m.answer(t, textEmptyCart, true)
		}
		if err := m.send(t, textAskLocation, nil); err != nil {
			return err
		}
		t.s.State = AwaitingLocation
		return nil
	}
	return m.stale(t, a)
}

func (m *Machine) onDeliveryMethod(t *turn, a Action) error {
	switch a.(type) {
	case ChooseDelivery, ChoosePickup:
	default:
		return m.stale(t, a)
	}

	q := t.s.Quote
	if q == nil {
		return m.stale(t, a)
	}
	if !q.Deliverable() {
		return m.send(t, outOfRangeText(*q), nil)
	}

	if _, ok := a.(ChoosePickup); ok {
		return m.pickUp(t)
	}

	if t.s.CartTotal == nil || t.s.Fee == nil {
		return ErrPaymentNotReady
	}
	// The cart may have changed since it was last rendered
	total, err := m.refreshCartTotal(t)
	if err != nil {
		return err
	}
	if total <= 0 {
		return m.answer(t, textEmptyCart, true)
	}
	if t.s.OrderID == "" {
		t.s.OrderID = m.newOrderID()
	}
	sum := total + *t.s.Fee
	invoice := Invoice{
		Title:       "Оплата заказа",
		Description: "Оплата заказа #" + shortID(t.s.OrderID),
		Payload:     PaymentPayload,
		Currency:    PaymentCurrency,
		Label:       "Оплата пиццы",
		Amount:      sum * 100,
	}
	if err := m.messenger.SendInvoice(t.ev.ChatID, invoice); err != nil {
		return fmt.Errorf("failed to send invoice: %w", err)
	}
	t.s.Method = domain.DeliveryMethodDelivery
	t.s.State = AwaitingPayment
	return nil
}

// handleMessage accepts an address or a location while one is expected
func (m *Machine) handleMessage(t *turn) error {
	switch t.s.State {
	case AwaitingLocation, ChoosingDeliveryMethod:
	default:
		m.logger.Debug("ignoring message", "user_id", t.ev.UserID, "state", t.s.State.String())
		return nil
	}

	pos := t.ev.Location
	if pos == nil && t.ev.Kind == EventText {
		if c, ok := geocode.ParseCoordinates(t.ev.Text); ok {
			pos = &c
		} else if !acceptsAddress(t.s) {
			m.logger.Debug("ignoring text while choosing delivery", "user_id", t.ev.UserID)
			return nil
		} else {
			var err error
			pos, err = m.locator.Resolve(t.ctx, t.ev.Text)
			if err != nil {
				return fmt.Errorf("failed to resolve address: %w", err)
			}
		}
	}
	if pos == nil {
		return m.send(t, textLocationUnknown, nil)
	}

	quote, err := m.checkout.Quote(t.ctx, *pos)
	if err != nil {
		return fmt.Errorf("failed to quote delivery: %w", err)
	}

	var kb Keyboard
	if quote.Deliverable() {
		kb = deliveryKeyboard()
	}
	if err := m.send(t, quoteText(quote), kb); err != nil {
		return err
	}

	position := *pos
	t.s.Quote = &quote
	t.s.Position = &position
	t.s.Fee = nil
	if quote.Deliverable() {
		fee := quote.Fee
		t.s.Fee = &fee
	}
	t.s.State = ChoosingDeliveryMethod
	return nil
}

// acceptsAddress reports whether free text is geocoded as an address.
// Once a deliverable quote is shown only location shares and raw coordinates replace it.
func acceptsAddress(s *Session) bool {
	return s.State == AwaitingLocation || s.Quote == nil || !s.Quote.Deliverable()
}

func (m *Machine) handlePreCheckout(t *turn) error {
	ok := t.ev.Payload == PaymentPayload && t.s.State == AwaitingPayment
	errMsg := ""
	if !ok {
		errMsg = textPaymentFailed
		m.logger.Warn("pre-checkout rejected", "user_id", t.ev.UserID, "payload", t.ev.Payload, "state", t.s.State.String())
	}
	if err := m.messenger.AnswerPreCheckout(t.ev.PreCheckoutID, ok, errMsg); err != nil {
		return fmt.Errorf("failed to answer pre-checkout: %w", err)
	}
	return nil
}

func (m *Machine) handlePaymentSuccess(t *turn) error {
	if t.ev.Payload != PaymentPayload {
		m.logger.Warn("ignoring payment with foreign payload", "user_id", t.ev.UserID, "payload", t.ev.Payload)
		return nil
	}

	s := t.s
	if s.State != AwaitingPayment || s.Quote == nil || s.Position == nil || s.CartTotal == nil || s.Fee == nil {
		m.logger.Error("payment received without a pending order",
			"user_id", t.ev.UserID, "state", s.State.String(), logging.NotifyKey, true)
		return nil
	}

	if err := m.send(t, textPaid, nil); err != nil {
		m.logger.Warn("failed to confirm payment", "user_id", t.ev.UserID, "error", err)
	}

	order := m.order(t, *s.CartTotal, *s.Fee)

	// The payment is captured at this point; a fulfillment failure is escalated, not retried.
	if err := m.checkout.CompleteOrder(t.ctx, order); err != nil {
		m.logger.Error("failed to complete paid order",
			"user_id", t.ev.UserID, "order_id", order.ID, "error", err, logging.NotifyKey, true)
	}

	s.State = Done
	return nil
}

// pickUp announces the pickup address and journals the unpaid order
func (m *Machine) pickUp(t *turn) error {
	total, err := m.refreshCartTotal(t)
	if err != nil {
		return err
	}
	if err := m.send(t, fmt.Sprintf(textPickupAt, t.s.Quote.Site.Address), nil); err != nil {
		return err
	}
	t.s.Method = domain.DeliveryMethodPickup

	order := m.order(t, total, 0)
	if err := m.checkout.CompleteOrder(t.ctx, order); err != nil {
		m.logger.Warn("failed to record pickup order", "user_id", t.ev.UserID, "order_id", order.ID, "error", err)
	}

	t.s.State = Done
	return nil
}

// order builds the order of the current session.
// Quote and Position must be set.
func (m *Machine) order(t *turn, cartTotal, fee int) *domain.Order {
	s := t.s
	if s.OrderID == "" {
		s.OrderID = m.newOrderID()
	}
	var pos domain.Coordinates
	if s.Position != nil {
		pos = *s.Position
	}
	return &domain.Order{
		ID:          s.OrderID,
		CustomerID:  t.ev.ChatID,
		Method:      s.Method,
		CartTotal:   cartTotal,
		DeliveryFee: fee,
		Position:    pos,
		SiteAddress: s.Quote.Site.Address,
		CarrierID:   s.Quote.Site.CarrierID,
	}
}

func (m *Machine) showMenu(t *turn, next State) error {
	products, err := m.catalog.Products(t.ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	page := clampPage(t.s.Page, pageCount(len(products)))
	m.deletePressed(t)
	if err := m.send(t, textChooseProduct, menuKeyboard(products, page)); err != nil {
		return err
	}

	t.s.Page = page
	t.s.State = next
	return nil
}

func (m *Machine) showProduct(t *turn, productID string) error {
	product, err := m.catalog.Product(t.ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	price, err := m.catalog.PriceBySKU(t.ctx, product.SKU)
	if err != nil {
		return fmt.Errorf("failed to get price of %s: %w", product.SKU, err)
	}

	caption := productCaption(product, price)
	kb := productKeyboard(product.ID)

	path := m.imagePath(t, product)
	m.deletePressed(t)
	if path != "" {
		if err := m.messenger.SendPhoto(t.ev.ChatID, path, caption, kb); err != nil {
			return fmt.Errorf("failed to send product card: %w", err)
		}
	} else if err := m.send(t, caption, kb); err != nil {
		return err
	}

	t.s.ProductID = product.ID
	t.s.State = ViewingProduct
	return nil
}

// imagePath returns the local image of a product, or "" to fall back to a text card
func (m *Machine) imagePath(t *turn, product domain.Product) string {
	if product.ImageID == "" || m.images == nil {
		return ""
	}
	path, err := m.images.Path(t.ctx, product.ImageID)
	if err != nil {
		m.logger.Warn("failed to load product image", "product_id", product.ID, "image_id", product.ImageID, "error", err)
		return ""
	}
	return path
}

func (m *Machine) showCart(t *turn) error {
	cart, err := m.carts.Cart(t.ctx, cartID(t.ev.UserID))
	if err != nil {
		return fmt.Errorf("failed to get cart: %w", err)
	}

	m.deletePressed(t)
	if err := m.send(t, cartText(cart), cartKeyboard(cart)); err != nil {
		return err
	}

	total := cart.Total
	t.s.CartTotal = &total
	t.s.State = ViewingCart
	return nil
}

// refreshCartTotal reads the cart total from the backend and caches it in the session
func (m *Machine) refreshCartTotal(t *turn) (int, error) {
	cart, err := m.carts.Cart(t.ctx, cartID(t.ev.UserID))
	if err != nil {
		return 0, fmt.Errorf("failed to get cart: %w", err)
	}
	total := cart.Total
	t.s.CartTotal = &total
	return total, nil
}

func (m *Machine) stale(t *turn, a Action) error {
	m.logger.Debug("ignoring stale button", "user_id", t.ev.UserID, "state", t.s.State.String(), "action", a.Data())
	return nil
}

func (m *Machine) send(t *turn, text string, kb Keyboard) error {
	if err := m.messenger.SendMessage(t.ev.ChatID, text, kb); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (m *Machine) answer(t *turn, text string, alert bool) error {
	t.answered = true
	if err := m.messenger.AnswerCallback(t.ev.CallbackID, text, alert); err != nil {
		m.logger.Warn("failed to answer callback", "user_id", t.ev.UserID, "error", err)
	}
	return nil
}

// deletePressed removes the message whose button triggered the event
func (m *Machine) deletePressed(t *turn) {
	if t.ev.Kind != EventCallback || t.ev.MessageID == 0 {
		return
	}
	if err := m.messenger.DeleteMessage(t.ev.ChatID, t.ev.MessageID); err != nil {
		m.logger.Debug("failed to delete message", "user_id", t.ev.UserID, "error", err)
	}
}

func cartID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
