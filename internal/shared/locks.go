package shared

import "fmt"

// FeeLockKey returns the Redis lock key guarding payments on a fee.
func FeeLockKey(feeID string) string {
	return fmt.Sprintf("fees:%s:lock", feeID)
}

// HostelLockKey returns the Redis lock key guarding room allocation in a hostel.
func HostelLockKey(hostelID string) string {
	return fmt.Sprintf("hostels:%s:lock", hostelID)
}

// StudentHousingLockKey returns the Redis lock key guarding a student's hostel assignment.
func StudentHousingLockKey(studentID string) string {
	return fmt.Sprintf("students:%s:housing:lock", studentID)
}
