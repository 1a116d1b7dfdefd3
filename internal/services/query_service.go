package services

// defaultFolderQueries are the provider search expressions used when no
// override is configured.
var defaultFolderQueries = map[Folder]string{
	FolderInbox:  "label:INBOX",
	FolderSent:   "from:me",
	FolderDrafts: "in:draft",
	FolderTrash:  "in:trash",
}

// QueryServiceImpl resolves folders to provider query strings, with
// per-folder overrides layered over the defaults.
type QueryServiceImpl struct {
	overrides map[Folder]string
}

func NewQueryService(overrides map[Folder]string) *QueryServiceImpl {
	return &QueryServiceImpl{overrides: overrides}
}

// QueryForFolder returns the query for a folder. An explicit search
// wins over any folder mapping.
func (s *QueryServiceImpl) QueryForFolder(folder Folder, search string) string {
	if search != "" {
		return search
	}
	if q, ok := s.overrides[folder]; ok && q != "" {
		return q
	}
	return defaultFolderQueries[folder]
}

// UnreadQuery narrows the folder query to unread conversations.
func (s *QueryServiceImpl) UnreadQuery(folder Folder) string {
	return s.QueryForFolder(folder, "") + " is:unread"
}
