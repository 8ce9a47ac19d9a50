package interfaces

// IProxyManager hands out the outbound proxy and User-Agent for provider
// requests. The network layer rotates on a blocked response.
type IProxyManager interface {
	// GetCurrentProxy returns the active proxy URL, "" when running direct.
	GetCurrentProxy() (string, error)

	RotateProxy()
	HasProxies() bool

	// GetUserAgent advances through the agent pool on every call.
	GetUserAgent() string
}
