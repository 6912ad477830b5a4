package conversation

import (
	"fmt"
	"math"
	"strings"

	"github.com/glebk/pizza-bot/internal/domain"
)

// ProductsPerPage is the menu page size
const ProductsPerPage = 5

// CaptionLimit is the longest photo caption the transport accepts, in runes
const CaptionLimit = 1024

const (
	textGreeting        = "Привет, %s! Хотите заказать пиццу?"
	textChooseProduct   = "Пожалуйста, выберите товар:"
	textAskLocation     = "Укажите адрес или координаты"
	textLocationUnknown = "К сожалению, не могу найти координаты. Уточните месторасположение"
	textAdded           = "Пицца добавлена в корзину"
	textRetry           = "Произошла ошибка. Попробуйте снова"
	textEmptyCart       = "Корзина пуста. Добавьте пиццу из меню"
	textPickupAt        = "Ваша пицца будет готова по адресу: %s"
	textPaid            = "Отлично! Мы уже готовим вашу пиццу!"
	textFarewell        = "Будем рады видеть вас снова 😊"
	textPaymentFailed   = "Что-то пошло не так..."
	textSessionExpired  = "Сессия устарела. Отправьте /start, чтобы начать заново"
	textPaymentNotReady = "Не удалось рассчитать сумму заказа. Оформите заказ заново через корзину"
)

// pageCount returns the number of menu pages for n products
func pageCount(n int) int {
	return (n + ProductsPerPage - 1) / ProductsPerPage
}

// clampPage keeps page within [0, pages-1]
func clampPage(page, pages int) int {
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

// menuKeyboard renders one page of products. Paging buttons are omitted at the edges.
func menuKeyboard(products []domain.Product, page int) Keyboard {
	pages := pageCount(len(products))
	page = clampPage(page, pages)

	var kb Keyboard
	if page > 0 {
		kb = append(kb, Row("<<<", PreviousPage{}))
	}

	start := page * ProductsPerPage
	end := min(start+ProductsPerPage, len(products))
	for _, p := range products[start:end] {
		kb = append(kb, Row("🍕 "+p.Name, SelectProduct{ProductID: p.ID}))
	}

	if page < pages-1 {
		kb = append(kb, Row(">>>", NextPage{}))
	}
	kb = append(kb, Row("🛒 КОРЗИНА", OpenCart{}))
	return kb
}

func productKeyboard(productID string) Keyboard {
	return Keyboard{
		Row("Добавить в корзину", AddToCart{ProductID: productID}),
		Row("🛒 КОРЗИНА", OpenCart{}),
		Row("Назад", Back{}),
	}
}

func productCaption(p domain.Product, price int) string {
	caption := fmt.Sprintf("«%s»\n\nЦена: %d руб.\n\n%s", p.Name, price, p.Description)
	return truncateRunes(caption, CaptionLimit)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func cartText(cart domain.Cart) string {
	var b strings.Builder
	for _, item := range cart.Items {
		fmt.Fprintf(&b, "🍕 %s\n%s руб/шт.\n%d шт. на %s руб.\n\n",
			item.Name, item.UnitPriceFormatted, item.Quantity, item.LineTotalFormatted)
	}
	fmt.Fprintf(&b, "ИТОГО: %s руб.", cartTotalFormatted(cart))
	return b.String()
}

func cartTotalFormatted(cart domain.Cart) string {
	if cart.TotalFormatted == "" {
		return fmt.Sprint(cart.Total)
	}
	return cart.TotalFormatted
}

func cartKeyboard(cart domain.Cart) Keyboard {
	var kb Keyboard
	for _, item := range cart.Items {
		kb = append(kb, Row(item.Name+" ✖️", RemoveItem{ItemID: item.ID}))
	}
	kb = append(kb,
		Row("📄 В МЕНЮ", GetMenu{}),
		Row("🍕 ОФОРМИТЬ ЗАКАЗ", CheckOut{}),
	)
	return kb
}

func deliveryKeyboard() Keyboard {
	return Keyboard{
		Row("Доставка", ChooseDelivery{}),
		Row("Самовывоз", ChoosePickup{}),
	}
}

// quoteText renders the delivery offer. The pickup band shows distance*100 as meters.
func quoteText(q domain.DeliveryQuote) string {
	site := q.Site
	switch q.Band {
	case domain.BandPickupSuggested:
		return fmt.Sprintf("Может, заберёте пиццу из нашей пиццерии неподалёку? "+
			"Она всего в %d м от вас! Вот её адрес: %s.\n\n"+
			"А можем и бесплатно доставить, нас не сложно с:",
			int(site.DistanceKm*100), site.Address)
	case domain.BandShortRange:
		return fmt.Sprintf("Адрес ближайшей пиццерии: %s.\n\n"+
			"Похоже, придётся ехать до вас на самокате. "+
			"Доставка будет стоить %d руб. Доставка или самовывоз?",
			site.Address, q.Fee)
	case domain.BandLongRange:
		return fmt.Sprintf("Доставка пиццы до вас будет стоить %d руб. Оформляем заказ?", q.Fee)
	default:
		return outOfRangeText(q)
	}
}

func outOfRangeText(q domain.DeliveryQuote) string {
	return fmt.Sprintf("Простите, но так далеко мы пиццу не доставим. "+
		"Ближайшая пиццерия аж в %d км от вас!", int(math.Round(q.Site.DistanceKm)))
}
