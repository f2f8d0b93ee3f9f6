package core

// Config carries resolved CLI configuration.
type Config struct {
	Broker    string
	Identity  string
	TopicBase string
	Aliases   map[string]string
	// DefaultNode is used when a command names no node.
	DefaultNode string
}

// ResolveAlias maps a selector through configured aliases.
func (c Config) ResolveAlias(selector string) string {
	if c.Aliases == nil {
		return selector
	}
	if mapped, ok := c.Aliases[selector]; ok {
		return mapped
	}
	return selector
}
