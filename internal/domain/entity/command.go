package entity

import "fmt"

type CommandType string

const (
	CommandAddItem        CommandType = "ADD_TO_CART"
	CommandRemoveItem     CommandType = "REMOVE_FROM_CART"
	CommandUpdateQuantity CommandType = "UPDATE_QUANTITY"
	CommandClear          CommandType = "CLEAR_CART"
	CommandLoad           CommandType = "LOAD_CART"
)

// Command is a cart transition. Only the fields relevant to Type are set.
type Command struct {
	Type      CommandType
	Product   *Product
	ProductID string
	Size      string
	Quantity  int
	Items     []LineItem
}

func AddItemCommand(product *Product, size string, quantity int) Command {
	return Command{Type: CommandAddItem, Product: product, Size: size, Quantity: quantity}
}

func RemoveItemCommand(productID, size string) Command {
	return Command{Type: CommandRemoveItem, ProductID: productID, Size: size}
}

// UpdateQuantityCommand clamps quantity to 1 so the cart never holds an item
// with a zero or negative quantity.
func UpdateQuantityCommand(productID, size string, quantity int) Command {
	if quantity < 1 {
		quantity = 1
	}
	return Command{Type: CommandUpdateQuantity, ProductID: productID, Size: size, Quantity: quantity}
}

func ClearCommand() Command {
	return Command{Type: CommandClear}
}

func LoadCommand(items []LineItem) Command {
	return Command{Type: CommandLoad, Items: items}
}

func (c Command) Validate() error {
	switch c.Type {
	case CommandAddItem:
		_, err := NewLineItem(c.Product, c.Size, c.Quantity)
		return err
	case CommandUpdateQuantity:
		if c.Quantity < 1 {
			return ErrInvalidQuantity
		}
		return nil
	case CommandRemoveItem, CommandClear, CommandLoad:
		return nil
	default:
		return fmt.Errorf("unknown cart command %q", c.Type)
	}
}

// Apply returns the cart that results from cmd. The input cart is never
// modified; invalid or unknown commands return an unchanged copy.
func Apply(cart Cart, cmd Command) Cart {
	if cmd.Validate() != nil {
		return cart.Clone()
	}

	switch cmd.Type {
	case CommandAddItem:
		next := cart.Clone()
		if idx := next.IndexOf(cmd.Product.ID, cmd.Size); idx >= 0 {
			next.Items[idx].Quantity += cmd.Quantity
			return next
		}
		next.Items = append(next.Items, LineItem{Product: cmd.Product, Size: cmd.Size, Quantity: cmd.Quantity})
		return next

	case CommandRemoveItem:
		next := NewCart()
		for _, item := range cart.Items {
			if !item.Matches(cmd.ProductID, cmd.Size) {
				next.Items = append(next.Items, item)
			}
		}
		return next

	case CommandUpdateQuantity:
		next := cart.Clone()
		if idx := next.IndexOf(cmd.ProductID, cmd.Size); idx >= 0 {
			next.Items[idx].Quantity = cmd.Quantity
		}
		return next

	case CommandClear:
		return NewCart()

	case CommandLoad:
		return normalize(cmd.Items)
	}
	return cart.Clone()
}

// normalize rebuilds a cart from untrusted items: entries without a product,
// size or positive quantity are dropped and duplicate pairs are merged.
func normalize(items []LineItem) Cart {
	next := NewCart()
	for _, item := range items {
		if _, err := NewLineItem(item.Product, item.Size, item.Quantity); err != nil {
			continue
		}
		if idx := next.IndexOf(item.Product.ID, item.Size); idx >= 0 {
			next.Items[idx].Quantity += item.Quantity
			continue
		}
		next.Items = append(next.Items, item)
	}
	return next
}
