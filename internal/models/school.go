// Доменные сущности административной панели школы.
package models

// DiscountType — способ применения скидки к начислению.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// FeeDiscount — скидка на оплату обучения.
type FeeDiscount struct {
	ID           int          `json:"id,omitempty"`
	Name         string       `json:"name"`
	DiscountType DiscountType `json:"discount_type"`
	Value        float64      `json:"value"`
	Description  string       `json:"description,omitempty"`
	IsActive     bool         `json:"is_active"`
}

// FeeStructure — структура платы для класса на учебный год.
type FeeStructure struct {
	ID           int     `json:"id,omitempty"`
	Name         string  `json:"name"`
	ClassName    string  `json:"class_name"`
	AcademicYear string  `json:"academic_year"`
	Amount       float64 `json:"amount"`
	DueDate      string  `json:"due_date"` // YYYY-MM-DD
}

// Fine — правило штрафа за просрочку оплаты.
type Fine struct {
	ID           int     `json:"id,omitempty"`
	Name         string  `json:"name"`
	FeeStructure int     `json:"fee_structure"`
	AmountPerDay float64 `json:"amount_per_day"`
	GraceDays    int     `json:"grace_days"`
	MaxAmount    float64 `json:"max_amount,omitempty"`
}

// Exam — запись расписания экзаменов.
type Exam struct {
	ID        int    `json:"id,omitempty"`
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	Subject   string `json:"subject"`
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
	MaxMarks  int    `json:"max_marks"`
}

// Group — роль с набором прав.
type Group struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	Permissions []int  `json:"permissions"`
}

// Permission — отдельное право.
type Permission struct {
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name"`
	Codename string `json:"codename"`
}
