package generic

// LeaveTypeRefs maps the well-known leave types to their record IDs. Any of
// them may be unset before reference data is loaded; engines then return
// zero-valued statistics instead of failing.
type LeaveTypeRefs struct {
	Vacation *LeaveTypeID
	Sick     *LeaveTypeID
	Parental *LeaveTypeID
	Overtime *LeaveTypeID
}

// OvertimeTypeCode is the code of the leave type that receives compensatory
// time-off grants.
const OvertimeTypeCode = "OVERTIME"

// RefOf returns a pointer for non-empty ids, nil otherwise.
func RefOf(id string) *LeaveTypeID {
	if id == "" {
		return nil
	}
	ref := LeaveTypeID(id)
	return &ref
}
