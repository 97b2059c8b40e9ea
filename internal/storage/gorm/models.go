package gormstorage

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotRecord is one persisted commander snapshot. Data holds the full snapshot JSON;
// the scalar columns are for querying.
type SnapshotRecord struct {
	ID      uint      `gorm:"primarykey"`
	Time    time.Time `gorm:"index"`
	Session string    `gorm:"size:36;index"`
	Side    string    `gorm:"size:8;index"`
	Tick    uint64
	Phase   string `gorm:"size:16"`
	Units   int
	Squads  int
	Zones   int
	Orders  int
	Errors  int
	Data    datatypes.JSON
}

func (SnapshotRecord) TableName() string { return "commander_snapshots" }

// OrderRecord is one dispatched order
type OrderRecord struct {
	ID       uint      `gorm:"primarykey"`
	Time     time.Time `gorm:"index"`
	Side     string    `gorm:"size:8;index"`
	Tick     uint64
	SquadID  int `gorm:"index"`
	ZoneID   int
	ZoneKey  string `gorm:"size:64"`
	Action   string `gorm:"size:16"`
	Priority int
	Manual   bool
	TargetX  float64
	TargetY  float64
	TargetZ  float64
}

func (OrderRecord) TableName() string { return "commander_orders" }

// Models lists every table the backend migrates
var Models = []any{&SnapshotRecord{}, &OrderRecord{}}
