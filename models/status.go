package models

// ApplicationStatus is the lookup of workflow labels an admin may assign.
type ApplicationStatus struct {
	Id           uint   `json:"id" gorm:"primaryKey"`
	Name         string `json:"name" gorm:"size:32;not null;uniqueIndex"`
	NameAr       string `json:"name_ar"`
	DisplayOrder int    `json:"display_order"`
}

func (ApplicationStatus) TableName() string { return "application_status" }

// DefaultStatuses seeds the lookup table.
var DefaultStatuses = []ApplicationStatus{
	{Name: StatusPending, NameAr: "قيد الانتظار", DisplayOrder: 1},
	{Name: StatusInProgress, NameAr: "قيد المعالجة", DisplayOrder: 2},
	{Name: StatusCompleted, NameAr: "مكتمل", DisplayOrder: 3},
	{Name: StatusRejected, NameAr: "مرفوض", DisplayOrder: 4},
}
