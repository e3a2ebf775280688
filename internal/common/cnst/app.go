package cnst

const (
	// AppName is the name of the gateway process
	AppName = "ranger"
	// CommandName is the name of the CLI binary
	CommandName = "ranger"

	// RangerYaml is the default configuration file name
	RangerYaml = "ranger.yaml"

	// EventsChannelPrefix is the channel prefix every bus event is published
	// under. The full channel is "<prefix>.<scope>.<target>.<stream>".
	EventsChannelPrefix = "peatio.events.ranger"
	// EventsPattern matches every event channel under EventsChannelPrefix
	EventsPattern = "peatio.events.ranger.*"
)

const (
	// BusTypeMemory selects the in-process bus
	BusTypeMemory = "memory"
	// BusTypeRedis selects the redis pub/sub bus
	BusTypeRedis = "redis"
)
