package repository

import (
	"time"

	"github.com/prodmon/factory-engine/internal/domain"
)

// MachineModel is the persistence model for the machines table.
type MachineModel struct {
	ID                  string               `gorm:"type:uuid;primaryKey"`
	Name                string               `gorm:"type:varchar(255);not null;uniqueIndex"`
	ManufactureDate     time.Time            `gorm:"type:date;not null"`
	LastMaintenanceDate *time.Time           `gorm:"type:date"`
	NextMaintenanceDue  *time.Time           `gorm:"type:date"`
	Status              domain.MachineStatus `gorm:"type:varchar(20);not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (MachineModel) TableName() string {
	return "machines"
}

// MaterialModel is the persistence model for the materials table. The
// (name, grade, location) identity is enforced by a functional unique index
// created in migrations, since the match is case-insensitive.
type MaterialModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	Grade     int    `gorm:"not null"`
	Location  string `gorm:"type:varchar(255);not null"`
	Stock     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MaterialModel) TableName() string {
	return "materials"
}

// BatchModel is the persistence model for the batches table.
type BatchModel struct {
	ID                 string             `gorm:"type:uuid;primaryKey"`
	ProductName        string             `gorm:"type:varchar(255);not null"`
	TargetQty          int                `gorm:"not null"`
	MachineID          string             `gorm:"type:uuid;not null;index"`
	OperatorID         string             `gorm:"type:uuid;not null"`
	Status             domain.BatchStatus `gorm:"type:varchar(20);not null"`
	EstimatedStartTime *time.Time         `gorm:"type:timestamptz"`
	EstimatedEndTime   *time.Time         `gorm:"type:timestamptz"`
	ActualStartTime    *time.Time         `gorm:"type:timestamptz"`
	ActualEndTime      *time.Time         `gorm:"type:timestamptz"`
	FailureReason      *string            `gorm:"type:text"`
	Materials          []BatchMaterialModel `gorm:"foreignKey:BatchID"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (BatchModel) TableName() string {
	return "batches"
}

// BatchMaterialModel is the persistence model for batch_materials, the
// reservation join table.
type BatchMaterialModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	BatchID    string `gorm:"type:uuid;not null;index"`
	MaterialID string `gorm:"type:uuid;not null"`
	Quantity   int    `gorm:"not null"`
	CreatedAt  time.Time
}

func (BatchMaterialModel) TableName() string {
	return "batch_materials"
}

// AlertModel is the persistence model for the alerts table.
type AlertModel struct {
	ID          string               `gorm:"type:uuid;primaryKey"`
	Type        domain.AlertType     `gorm:"type:varchar(20);not null"`
	Severity    domain.AlertSeverity `gorm:"type:varchar(10);not null"`
	MachineID   string               `gorm:"type:uuid;not null"`
	MachineName string               `gorm:"type:varchar(255);not null"`
	Message     string               `gorm:"type:text;not null"`
	Resolved    bool                 `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

func (AlertModel) TableName() string {
	return "alerts"
}

// ProductionLogModel is the persistence model for production_logs. Rows are
// written once per terminal batch and never updated.
type ProductionLogModel struct {
	ID          string                  `gorm:"type:uuid;primaryKey"`
	BatchID     string                  `gorm:"type:uuid;not null;index"`
	ProductName string                  `gorm:"type:varchar(255);not null"`
	ProducedQty int                     `gorm:"not null"`
	MachineID   string                  `gorm:"type:uuid;not null"`
	OperatorID  string                  `gorm:"type:uuid;not null"`
	Shift       domain.Shift            `gorm:"type:varchar(10);not null"`
	StartTime   time.Time               `gorm:"type:timestamptz;not null"`
	EndTime     *time.Time              `gorm:"type:timestamptz"`
	Status      domain.ProductionStatus `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
}

func (ProductionLogModel) TableName() string {
	return "production_logs"
}

func machineModelFromDomain(m *domain.Machine) *MachineModel {
	if m == nil {
		return nil
	}
	return &MachineModel{
		ID:                  m.ID,
		Name:                m.Name,
		ManufactureDate:     m.ManufactureDate,
		LastMaintenanceDate: m.LastMaintenanceDate,
		NextMaintenanceDue:  m.NextMaintenanceDue,
		Status:              m.Status,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func machineModelToDomain(m *MachineModel) *domain.Machine {
	if m == nil {
		return nil
	}
	return &domain.Machine{
		ID:                  m.ID,
		Name:                m.Name,
		ManufactureDate:     m.ManufactureDate,
		LastMaintenanceDate: m.LastMaintenanceDate,
		NextMaintenanceDue:  m.NextMaintenanceDue,
		Status:              m.Status,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func materialModelFromDomain(m *domain.Material) *MaterialModel {
	if m == nil {
		return nil
	}
	return &MaterialModel{
		ID:        m.ID,
		Name:      m.Name,
		Grade:     m.Grade,
		Location:  m.Location,
		Stock:     m.Stock,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func materialModelToDomain(m *MaterialModel) *domain.Material {
	if m == nil {
		return nil
	}
	return &domain.Material{
		ID:        m.ID,
		Name:      m.Name,
		Grade:     m.Grade,
		Location:  m.Location,
		Stock:     m.Stock,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func batchModelFromDomain(b *domain.Batch) *BatchModel {
	if b == nil {
		return nil
	}
	materials := make([]BatchMaterialModel, 0, len(b.Materials))
	for _, bm := range b.Materials {
		materials = append(materials, BatchMaterialModel{
			ID:         bm.ID,
			BatchID:    b.ID,
			MaterialID: bm.MaterialID,
			Quantity:   bm.Quantity,
		})
	}
	return &BatchModel{
		ID:                 b.ID,
		ProductName:        b.ProductName,
		TargetQty:          b.TargetQty,
		MachineID:          b.MachineID,
		OperatorID:         b.OperatorID,
		Status:             b.Status,
		EstimatedStartTime: b.EstimatedStartTime,
		EstimatedEndTime:   b.EstimatedEndTime,
		ActualStartTime:    b.ActualStartTime,
		ActualEndTime:      b.ActualEndTime,
		FailureReason:      b.FailureReason,
		Materials:          materials,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func batchModelToDomain(m *BatchModel) *domain.Batch {
	if m == nil {
		return nil
	}
	materials := make([]domain.BatchMaterial, 0, len(m.Materials))
	for _, bm := range m.Materials {
		materials = append(materials, domain.BatchMaterial{
			ID:         bm.ID,
			BatchID:    bm.BatchID,
			MaterialID: bm.MaterialID,
			Quantity:   bm.Quantity,
		})
	}
	return &domain.Batch{
		ID:                 m.ID,
		ProductName:        m.ProductName,
		TargetQty:          m.TargetQty,
		MachineID:          m.MachineID,
		OperatorID:         m.OperatorID,
		Status:             m.Status,
		EstimatedStartTime: m.EstimatedStartTime,
		EstimatedEndTime:   m.EstimatedEndTime,
		ActualStartTime:    m.ActualStartTime,
		ActualEndTime:      m.ActualEndTime,
		FailureReason:      m.FailureReason,
		Materials:          materials,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func alertModelFromDomain(a *domain.Alert) *AlertModel {
	if a == nil {
		return nil
	}
	return &AlertModel{
		ID:          a.ID,
		Type:        a.Type,
		Severity:    a.Severity,
		MachineID:   a.MachineID,
		MachineName: a.MachineName,
		Message:     a.Message,
		Resolved:    a.Resolved,
		CreatedAt:   a.CreatedAt,
	}
}

func alertModelToDomain(m *AlertModel) *domain.Alert {
	if m == nil {
		return nil
	}
	return &domain.Alert{
		ID:          m.ID,
		Type:        m.Type,
		Severity:    m.Severity,
		MachineID:   m.MachineID,
		MachineName: m.MachineName,
		Message:     m.Message,
		Resolved:    m.Resolved,
		CreatedAt:   m.CreatedAt,
	}
}

func productionLogModelFromDomain(l *domain.ProductionLog) *ProductionLogModel {
	if l == nil {
		return nil
	}
	return &ProductionLogModel{
		ID:          l.ID,
		BatchID:     l.BatchID,
		ProductName: l.ProductName,
		ProducedQty: l.ProducedQty,
		MachineID:   l.MachineID,
		OperatorID:  l.OperatorID,
		Shift:       l.Shift,
		StartTime:   l.StartTime,
		EndTime:     l.EndTime,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
	}
}

func productionLogModelToDomain(m *ProductionLogModel) *domain.ProductionLog {
	if m == nil {
		return nil
	}
	return &domain.ProductionLog{
		ID:          m.ID,
		BatchID:     m.BatchID,
		ProductName: m.ProductName,
		ProducedQty: m.ProducedQty,
		MachineID:   m.MachineID,
		OperatorID:  m.OperatorID,
		Shift:       m.Shift,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
	}
}
