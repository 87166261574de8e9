package pipeline

// FlushNotifier is told when the buffer reaches the batch threshold.
// Implementations must not block.
type FlushNotifier interface {
	NotifyThreshold()
}
