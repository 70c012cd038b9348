// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	InputFormatId Id = iota + 1
	NoContainerFoundId
	CorruptContainerId
	MissingEngineId
	EngineLaunchFailedId
	RebuildDeclinedId
	ArchiverNotFoundId
	FilesystemContentionId
	ConfigLoadFailedId
	PermissionDeniedId
)

type (
	MarkdownMsg string

	HttpLink string

	// Issue is a Markdown explanation of a failure class with remedies.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with the glamour style at stylePath ("dark",
// "light", "notty", "auto" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	inputFormatIssue = &Issue{
		id: InputFormatId,
		mdMsg: `
# Unsupported input!

The input is neither a content container (` + "`.vpk`" + `) nor a zip, 7z or rar archive.

## Things you can try:
- Point maptools at the ` + "`.vpk`" + ` file itself, or at the archive you downloaded
- Re-download the archive if it may be truncated
- Check the file type:
~~~
$ file mymap.zip
~~~`,
	}

	noContainerFoundIssue = &Issue{
		id: NoContainerFoundId,
		mdMsg: `
# No container in the archive!

The archive was extracted, but none of its files is a ` + "`.vpk`" + ` container.

## Things you can try:
- Open the archive and check that it really contains the map
- Some authors ship a nested archive; extract it once and pass the inner file
- Chunk files (` + "`pak01_000.vpk`" + `) are only read through their ` + "`_dir.vpk`" + ` index`,
	}

	corruptContainerIssue = &Issue{
		id: CorruptContainerId,
		mdMsg: `
# Corrupt container!

The container's header or directory tree could not be decoded, or an entry failed its checksum.

## Things you can try:
- Re-download the map; the file is most likely truncated
- Open it in the game once to confirm it loads
- Inspect the entries that do decode:
~~~
$ maptools inspect mymap.vpk
~~~`,
	}

	missingEngineIssue = &Issue{
		id: MissingEngineId,
		mdMsg: `
# Game executable not configured!

A level needs its string-table dictionary rebuilt, which requires the game executable.

## Things you can try:
- Pass the executable explicitly:
~~~
$ maptools package mymap.vpk --engine "C:\Games\Left 4 Dead 2\left4dead2.exe"
~~~

- Store it once in the configuration:
~~~
$ maptools config set engine_path /path/to/left4dead2.exe
~~~

- Skip the dictionary check with ` + "`--check-dictionary=false`",
	}

	engineLaunchFailedIssue = &Issue{
		id: EngineLaunchFailedId,
		mdMsg: `
# The game could not be started!

The executable exists but the launch failed, or it did not exit before the timeout.

## Things you can try:
- Start Steam and log in before packaging
- Close any running instance of the game
- Raise the timeout with ` + "`--engine-timeout 1h`" + `
- Preview the exact command line with ` + "`--dry-run`",
	}

	rebuildDeclinedIssue = &Issue{
		id: RebuildDeclinedId,
		mdMsg: `
# Packaging cancelled!

A level lacks its string-table dictionary and the rebuild was declined, so nothing was written.

## Things you can try:
- Re-run with ` + "`--auto-rebuild`" + ` to rebuild without asking
- Re-run with ` + "`--check-dictionary=false`" + ` to package the levels as they are`,
	}

	archiverNotFoundIssue = &Issue{
		id: ArchiverNotFoundId,
		mdMsg: `
# Archiver not found!

The 7z and rar output formats are written by the external ` + "`7z`" + ` and ` + "`rar`" + ` tools.

## Things you can try:
- Install 7-Zip (` + "`7z`, `7zz` or `7za`" + `) or WinRAR and make sure it is on your PATH
- Use the built-in zip format instead: ` + "`-f zip`",
		extLinks: []HttpLink{"https://www.7-zip.org/download.html"},
	}

	filesystemContentionIssue = &Issue{
		id: FilesystemContentionId,
		mdMsg: `
# A file stayed locked!

A file could not be removed after several attempts. Another program, usually an antivirus
scanner or the game itself, is holding it open.

## Things you can try:
- Close the game and any file browser showing the output directory
- Increase the retry budget:
~~~
$ maptools config set retry.attempts 10
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration!

The configuration file could not be parsed or does not match the schema.

## Things you can try:
- Show where the file lives:
~~~
$ maptools config path
~~~

- Print the effective configuration, or write a fresh default file:
~~~
$ maptools config show
$ maptools config init --force
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

maptools could not write to the output or staging directory.

## Things you can try:
- Choose an output directory you own with ` + "`-o`" + `
- Avoid writing into the game's install directory while it is running`,
	}

	issues = map[Id]*Issue{
		inputFormatIssue.Id():          inputFormatIssue,
		noContainerFoundIssue.Id():     noContainerFoundIssue,
		corruptContainerIssue.Id():     corruptContainerIssue,
		missingEngineIssue.Id():        missingEngineIssue,
		engineLaunchFailedIssue.Id():   engineLaunchFailedIssue,
		rebuildDeclinedIssue.Id():      rebuildDeclinedIssue,
		archiverNotFoundIssue.Id():     archiverNotFoundIssue,
		filesystemContentionIssue.Id(): filesystemContentionIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
