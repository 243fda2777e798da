package ports

import "bloomkeepers/internal/protocol"

type RelayMetrics interface {
	RecordAuth(ok bool)
	RecordEviction()
	RecordDropped(reason string)
	RecordRouted(kind protocol.Kind, deliveries int)
}

type SimulationMetrics interface {
	RecordTick()
	RecordSpawn()
	RecordCure()
	RecordHeal()
}
