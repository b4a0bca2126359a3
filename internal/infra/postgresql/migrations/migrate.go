package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/prodmon/factory-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createMachinesTable(),
		createMaterialsTable(),
		createBatchesTable(),
		createAlertsTable(),
		createProductionLogsTable(),
	})

	return m.Migrate()
}

func createMachinesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_machines",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.MachineModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.MachineModel{})
		},
	}
}

func createMaterialsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_materials",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.MaterialModel{}); err != nil {
				return err
			}
			// Identity match is case-insensitive, so the uniqueness
			// constraint has to live on the lowered expression.
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_materials_identity
				ON materials (LOWER(name), grade, LOWER(location))`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.MaterialModel{})
		},
	}
}

func createBatchesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_batches",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BatchModel{}, &repository.BatchMaterialModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_batch_materials_batch_material ON batch_materials (batch_id, material_id)`,
				`CREATE INDEX IF NOT EXISTS idx_batches_machine_active ON batches (machine_id) WHERE status IN ('IN_PROGRESS', 'PAUSED')`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchMaterialModel{}, &repository.BatchModel{})
		},
	}
}

func createAlertsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_alerts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.AlertModel{}); err != nil {
				return err
			}
			// Backstop for the service-level dedup of unresolved
			// maintenance alerts.
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_unresolved_maintenance
				ON alerts (machine_id) WHERE type = 'MAINTENANCE' AND resolved = false`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.AlertModel{})
		},
	}
}

func createProductionLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_production_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ProductionLogModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_production_logs_status_start
				ON production_logs (status, start_time)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ProductionLogModel{})
		},
	}
}
