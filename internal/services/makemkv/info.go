package makemkv

import (
	"sort"
	"strconv"
	"strings"
)

// MakeMKV item attribute ids used by CINFO and TINFO lines.
const (
	attrName           = 2
	attrDuration       = 9
	attrDiskSizeBytes  = 11
	attrOutputFileName = 27
	attrVolumeName     = 32
)

// TitleInfo describes one title reported by an info scan.
type TitleInfo struct {
	Index      int
	Name       string
	Duration   string
	SizeBytes  int64
	OutputName string
}

// DiscInfo is the result of a makemkvcon info scan.
type DiscInfo struct {
	Label      string
	VolumeName string
	TitleCount int
	Titles     []TitleInfo
}

// BestLabel returns the disc name, falling back to the volume name.
func (d DiscInfo) BestLabel() string {
	if s := strings.TrimSpace(d.Label); s != "" {
		return s
	}
	return strings.TrimSpace(d.VolumeName)
}

// infoCollector accumulates CINFO, TCOUNT and TINFO lines.
type infoCollector struct {
	info   DiscInfo
	titles map[int]*TitleInfo
}

func newInfoCollector() *infoCollector {
	return &infoCollector{titles: make(map[int]*TitleInfo)}
}

func (c *infoCollector) add(line string) {
	switch {
	case strings.HasPrefix(line, "CINFO:"):
		fields, ok := splitRobotFields(line, "CINFO:")
		if !ok || len(fields) < 3 {
			return
		}
		attr, err := strconv.Atoi(fields[0])
		if err != nil {
			return
		}
		switch attr {
		case attrName:
			c.info.Label = fields[2]
		case attrVolumeName:
			c.info.VolumeName = fields[2]
		}
	case strings.HasPrefix(line, "TCOUNT:"):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "TCOUNT:")))
		if err == nil {
			c.info.TitleCount = n
		}
	case strings.HasPrefix(line, "TINFO:"):
		fields, ok := splitRobotFields(line, "TINFO:")
		if !ok || len(fields) < 4 {
			return
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return
		}
		attr, err := strconv.Atoi(fields[1])
		if err != nil {
			return
		}
		title := c.titles[idx]
		if title == nil {
			title = &TitleInfo{Index: idx}
			c.titles[idx] = title
		}
		value := fields[3]
		switch attr {
		case attrName:
			title.Name = value
		case attrDuration:
			title.Duration = value
		case attrDiskSizeBytes:
			title.SizeBytes, _ = strconv.ParseInt(value, 10, 64)
		case attrOutputFileName:
			title.OutputName = value
		}
	}
}

func (c *infoCollector) result() DiscInfo {
	info := c.info
	info.Titles = make([]TitleInfo, 0, len(c.titles))
	for _, t := range c.titles {
		info.Titles = append(info.Titles, *t)
	}
	sort.Slice(info.Titles, func(i, j int) bool { return info.Titles[i].Index < info.Titles[j].Index })
	if info.TitleCount == 0 {
		info.TitleCount = len(info.Titles)
	}
	return info
}

// TitleIndexForFile maps an output filename back to its title index using
// the OutputName reported by the info scan. It returns -1 when unknown.
func (d DiscInfo) TitleIndexForFile(name string) int {
	for _, t := range d.Titles {
		if t.OutputName != "" && t.OutputName == name {
			return t.Index
		}
	}
	return -1
}
