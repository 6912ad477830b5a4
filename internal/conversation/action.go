package conversation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned for callback data that no action decodes from
var ErrUnknownAction = errors.New("unknown action")

// Action is a button press decoded from callback data.
// The set of variants is closed; see ParseAction.
type Action interface {
	// Data returns the callback data the action is encoded as
	Data() string
	isAction()
}

type (
	ShowMenu       struct{}
	NextPage       struct{}
	PreviousPage   struct{}
	OpenCart       struct{}
	Back           struct{}
	GetMenu        struct{}
	CheckOut       struct{}
	ChooseDelivery struct{}
	ChoosePickup   struct{}

	SelectProduct struct{ ProductID string }
	AddToCart     struct{ ProductID string }
	RemoveItem    struct{ ItemID string }
)

const (
	productPrefix = "product:"
	addPrefix     = "add:"
	removePrefix  = "remove:"
)

func (ShowMenu) Data() string       { return "show_menu" }
func (NextPage) Data() string       { return "next_page" }
func (PreviousPage) Data() string   { return "previous_page" }
func (OpenCart) Data() string       { return "cart" }
func (Back) Data() string           { return "back" }
func (GetMenu) Data() string        { return "get_menu" }
func (CheckOut) Data() string       { return "check_out" }
func (ChooseDelivery) Data() string { return "delivery" }
func (ChoosePickup) Data() string   { return "self_pickup" }

func (a SelectProduct) Data() string { return productPrefix + a.ProductID }
func (a AddToCart) Data() string     { return addPrefix + a.ProductID }
func (a RemoveItem) Data() string    { return removePrefix + a.ItemID }

func (ShowMenu) isAction()       {}
func (NextPage) isAction()       {}
func (PreviousPage) isAction()   {}
func (OpenCart) isAction()       {}
func (Back) isAction()           {}
func (GetMenu) isAction()        {}
func (CheckOut) isAction()       {}
func (ChooseDelivery) isAction() {}
func (ChoosePickup) isAction()   {}
func (SelectProduct) isAction()  {}
func (AddToCart) isAction()      {}
func (RemoveItem) isAction()     {}

var simpleActions = map[string]Action{}

func init() {
	for _, a := range []Action{
		ShowMenu{}, NextPage{}, PreviousPage{}, OpenCart{}, Back{},
		GetMenu{}, CheckOut{}, ChooseDelivery{}, ChoosePickup{},
	} {
		simpleActions[a.Data()] = a
	}
}

// ParseAction decodes callback data into an Action
func ParseAction(data string) (Action, error) {
	if a, ok := simpleActions[data]; ok {
		return a, nil
	}

	prefixed := []struct {
		prefix string
		build  func(string) Action
	}{
		{productPrefix, func(id string) Action { return SelectProduct{ProductID: id} }},
		{addPrefix, func(id string) Action { return AddToCart{ProductID: id} }},
		{removePrefix, func(id string) Action { return RemoveItem{ItemID: id} }},
	}
	for _, p := range prefixed {
		if id, ok := strings.CutPrefix(data, p.prefix); ok && id != "" {
			return p.build(id), nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, data)
}
