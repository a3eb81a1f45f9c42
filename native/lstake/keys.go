package lstake

var (
	configKey  = []byte("lstake/config")
	pendingKey = []byte("lstake/pending")
)
