package cache

import "strings"

// RepoListKey holds the organisation's repository list.
const RepoListKey = "repos:list"

// RepoPrefix is the prefix shared by every key scoped to repo.
func RepoPrefix(repo string) string {
	return "repo:" + repo + ":"
}

// ContentsKey holds a directory listing. dir "" is the repository root.
func ContentsKey(repo, dir string) string {
	return RepoPrefix(repo) + "contents:" + strings.Trim(dir, "/")
}

// PagesKey holds the Pages site status of repo.
func PagesKey(repo string) string {
	return RepoPrefix(repo) + "pages"
}

// CommitDateKey holds the date of the last commit touching path in repo.
func CommitDateKey(repo, path string) string {
	return RepoPrefix(repo) + "commit:" + strings.Trim(path, "/")
}
