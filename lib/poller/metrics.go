package poller

type cycleMetrics struct {
	fetched  int
	added    int
	notified int
	errored  int
}
