package devapi

import (
	"github.com/pribylovaa/school-admin/internal/devapi/store"
	"github.com/pribylovaa/school-admin/internal/resources"
)

func seedCollections(cs map[string]*store.Collection) {
	seed := map[string][]store.Record{
		resources.PathFeeDiscounts: {
			{"name": "Sibling discount", "discount_type": "percentage", "value": 10.0, "is_active": true},
			{"name": "Staff child", "discount_type": "fixed", "value": 150.0, "is_active": true},
		},
		resources.PathFeeStructures: {
			{"name": "Tuition 5A", "class_name": "5A", "academic_year": "2026-2027", "amount": 1200.0, "due_date": "2026-09-01"},
			{"name": "Tuition 6B", "class_name": "6B", "academic_year": "2026-2027", "amount": 1350.0, "due_date": "2026-09-01"},
		},
		resources.PathFines: {
			{"name": "Late payment", "fee_structure": 1.0, "amount_per_day": 5.0, "grace_days": 7.0},
		},
		resources.PathExams: {
			{"name": "Midterm", "class_name": "5A", "subject": "Mathematics", "date": "2026-11-12", "start_time": "09:00", "end_time": "11:00", "max_marks": 100.0},
		},
		resources.PathPermissions: {
			{"name": "Can add exam", "codename": "add_exam"},
			{"name": "Can change fee structure", "codename": "change_feestructure"},
		},
		resources.PathGroups: {
			{"name": "Accountants", "permissions": []any{2.0}},
			{"name": "Teachers", "permissions": []any{1.0}},
		},
	}

	for path, recs := range seed {
		c, ok := cs[path]
		if !ok {
			continue
		}
		for _, rec := range recs {
			// Демонстрационные данные заведомо проходят валидацию.
			_, _ = c.Create(rec)
		}
	}
}
