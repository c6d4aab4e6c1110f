package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// Build-time variables, set via -ldflags -X.
var (
	buildVersion   = "dev"
	buildCommit    = "unknown"
	buildTimestamp = ""
	buildDate      = ""
)

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show build version and staleness information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runVersion(cmd.OutOrStdout(), ".")
		},
	}
	rootCmd.AddCommand(versionCmd)
}

func runVersion(w io.Writer, dir string) {
	if buildVersion == "dev" {
		// Not a release build; describe the checkout it was built from.
		if d, err := describeRepo(dir); err == nil {
			fmt.Fprintf(w, "Version:     %s\n", d)
			fmt.Fprintf(w, "Commit:      %s\n", d.commit)
			fmt.Fprintf(w, "Commit date: %s\n", d.date.UTC().Format(time.RFC3339))
			fmt.Fprintf(w, "Dirty:       %t\n", d.dirty)
			return
		}
	}
	printVersionInfo(w)
	printStaleness(w, dir)
}

func printVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "Version:     %s\n", buildVersion)
	fmt.Fprintf(w, "Commit:      %s\n", buildCommit)

	if buildTimestamp != "" {
		if ts, err := strconv.ParseInt(buildTimestamp, 10, 64); err == nil {
			commitTime := time.Unix(ts, 0).UTC()
			fmt.Fprintf(w, "Commit date: %s\n", commitTime.Format(time.RFC3339))
		}
	}

	if buildDate != "" {
		fmt.Fprintf(w, "Build date:  %s\n", buildDate)
	}
}

// printStaleness reports how far the checkout in dir has moved past the
// commit this binary was built from.
func printStaleness(w io.Writer, dir string) {
	if buildTimestamp == "" || buildCommit == "unknown" {
		return
	}
	builtTs, err := strconv.ParseInt(buildTimestamp, 10, 64)
	if err != nil {
		return
	}

	repo, err := openRepo(dir)
	if err != nil {
		return // not in a git repo
	}
	head, err := repo.Head()
	if err != nil {
		return
	}
	latest, err := repo.CommitObject(head.Hash())
	if err != nil {
		return
	}

	latestTs := latest.Committer.When.Unix()
	if latestTs <= builtTs {
		fmt.Fprintln(w, "\nBuild is up to date with latest commit.")
		return
	}

	diff := time.Duration(latestTs-builtTs) * time.Second
	fmt.Fprintf(w, "\nBuild is %s behind latest commit.", formatDuration(diff))
	if n, ok := commitsSince(repo, head.Hash(), plumbing.NewHash(buildCommit)); ok && n > 0 {
		fmt.Fprintf(w, " (%d commits)", n)
	}
	fmt.Fprintln(w)
}

func openRepo(dir string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
}

// commitsSince counts commits reachable from head before reaching base.
func commitsSince(repo *git.Repository, head, base plumbing.Hash) (int, bool) {
	iter, err := repo.Log(&git.LogOptions{From: head})
	if err != nil {
		return 0, false
	}
	n, found := 0, false
	err = iter.ForEach(func(c *object.Commit) error {
		if c.Hash == base {
			found = true
			return storer.ErrStop
		}
		n++
		return nil
	})
	return n, err == nil && found
}

// description is a checkout described relative to its nearest semver tag.
type description struct {
	tag      string
	distance int
	commit   string
	date     time.Time
	dirty    bool
}

// String renders the description the way PEP 440 local versions do:
// the bare tag on a clean tagged commit, otherwise
// TAG+DISTANCE.gSHORT[.dirty], or 0+untagged.DISTANCE.gSHORT[.dirty]
// without a tag.
func (d description) String() string {
	short := d.commit
	if len(short) > 7 {
		short = short[:7]
	}
	var v string
	switch {
	case d.tag == "":
		v = fmt.Sprintf("0+untagged.%d.g%s", d.distance, short)
	case d.distance == 0 && !d.dirty:
		return d.tag
	case d.distance == 0:
		v = d.tag + "+0.g" + short
	default:
		v = fmt.Sprintf("%s+%d.g%s", d.tag, d.distance, short)
	}
	if d.dirty {
		v += ".dirty"
	}
	return v
}

// describeRepo walks back from HEAD to the nearest commit carrying a
// semver tag. When several tags point at one commit the highest wins.
func describeRepo(dir string) (description, error) {
	repo, err := openRepo(dir)
	if err != nil {
		return description{}, err
	}
	head, err := repo.Head()
	if err != nil {
		return description{}, err
	}

	tags, err := semverTags(repo)
	if err != nil {
		return description{}, err
	}

	d := description{commit: head.Hash().String()}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return description{}, err
	}
	err = iter.ForEach(func(c *object.Commit) error {
		if d.date.IsZero() {
			d.date = c.Committer.When
		}
		if tag, ok := tags[c.Hash]; ok {
			d.tag = tag
			return storer.ErrStop
		}
		d.distance++
		return nil
	})
	if err != nil {
		return description{}, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return description{}, err
	}
	status, err := wt.Status()
	if err != nil {
		return description{}, err
	}
	d.dirty = !status.IsClean()
	return d, nil
}

// semverTags maps tagged commits to the highest semver tag on each.
func semverTags(repo *git.Repository) (map[plumbing.Hash]string, error) {
	refs, err := repo.Tags()
	if err != nil {
		return nil, err
	}
	tags := make(map[plumbing.Hash]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !semver.IsValid(name) {
			return nil
		}
		hash := ref.Hash()
		// Annotated tags point at a tag object rather than the commit.
		if obj, err := repo.TagObject(hash); err == nil {
			c, err := obj.Commit()
			if err != nil {
				return nil
			}
			hash = c.Hash
		} else if !errors.Is(err, plumbing.ErrObjectNotFound) {
			return err
		}
		if cur, ok := tags[hash]; !ok || semver.Compare(name, cur) > 0 {
			tags[hash] = name
		}
		return nil
	})
	return tags, err
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	if hours < 1 {
		mins := int(d.Minutes())
		if mins <= 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if hours == 1 {
		return "1 hour"
	}
	if hours < 24 {
		return fmt.Sprintf("%d hours", hours)
	}
	days := hours / 24
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
