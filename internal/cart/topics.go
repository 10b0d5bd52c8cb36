package cart

const (
	TopicCartCheckedOut = "cart.checked_out"
)

// Partition key = cart_id, so events for one cart keep their order.
func PartitionKey(cartID string) []byte { return []byte(cartID) }
