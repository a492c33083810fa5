package store

// Key builders for every entity kind, scoped to one event id. The exact
// strings are a compatibility contract with the mobile clients that wrote
// (and still read) the same store, so they must not change.

func EventKey(eventID string) string       { return "event_" + eventID }
func StudentsKey(eventID string) string    { return "students_" + eventID }
func QRCodesKey(eventID string) string     { return "qrcodes_" + eventID }
func PreferencesKey(eventID string) string { return "prefs_" + eventID }
func SessionsKey(eventID string) string    { return "sessions_" + eventID }
func LastSyncKey(eventID string) string    { return "lastSync_" + eventID }
func LastUploadKey(eventID string) string  { return "lastUpload_" + eventID }
func LastScanKey(eventID string) string    { return "lastScan_" + eventID }

// ServerDrivenKeys are the keys sync-down is allowed to clear before a
// refetch. Sessions and the timestamp stamps deliberately stay out of this
// list so offline work survives a re-sync.
func ServerDrivenKeys(eventID string) []string {
	return []string{
		EventKey(eventID),
		StudentsKey(eventID),
		QRCodesKey(eventID),
		PreferencesKey(eventID),
	}
}
