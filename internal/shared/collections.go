package shared

// Document store collections.
const (
	CollectionUsers             = "users"
	CollectionStudents          = "students"
	CollectionFees              = "fees"
	CollectionHostels           = "hostels"
	CollectionExams             = "exams"
	CollectionExamRegistrations = "examRegistrations"
	CollectionAdmissions        = "admissions"
	CollectionAuditLogs         = "auditLogs"
)
