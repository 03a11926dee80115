package views

import (
	"fmt"
	"maps"
	"strconv"

	"Tgviews/storage"
)

const (
	JumpFirstLabel = "<<"
	JumpLastLabel  = ">>"
)

type PageControl struct {
	Label string
	Page  int
}

func pageLabel(page, current int) string {
	if page == current {
		return fmt.Sprintf("-%d-", page)
	}
	return strconv.Itoa(page)
}

// Paginate builds the page navigation controls.
// Up to 6 pages all are listed, otherwise a window of 5 pages is shown with jumps to the far ends.
func Paginate(total, pageSize, pageNum int) []PageControl {
	if pageSize <= 0 || total <= 0 {
		return nil
	}
	pages := (total + pageSize - 1) / pageSize
	if pages <= 1 {
		return nil
	}

	control := func(page int) PageControl {
		return PageControl{Label: pageLabel(page, pageNum), Page: page}
	}
	var controls []PageControl

	switch {
	case pages < 7:
		for page := 1; page <= pages; page++ {
			controls = append(controls, control(page))
		}
	case pageNum < 5:
		for page := 1; page <= 5; page++ {
			controls = append(controls, control(page))
		}
		controls = append(controls, PageControl{Label: JumpLastLabel, Page: pages}, control(pages))
	case pageNum > pages-4:
		controls = append(controls, PageControl{Label: JumpFirstLabel, Page: 1}, control(1))
		for page := pages - 4; page <= pages; page++ {
			controls = append(controls, control(page))
		}
	default:
		controls = append(controls,
			control(1),
			PageControl{Label: JumpFirstLabel, Page: 1},
			control(pageNum-1),
			control(pageNum),
			control(pageNum+1),
			PageControl{Label: JumpLastLabel, Page: pages},
			control(pages),
		)
	}
	return controls
}

// Paginator turns page controls into buttons of the current view
type Paginator struct {
	vc       *Context
	pageSize int
}

// Page is the current page number, 1 when the callback carries none
func (p *Paginator) Page() int {
	if page := p.vc.Callback.PageNum; page > 0 {
		return page
	}
	return 1
}

// Offset is the number of items before the current page
func (p *Paginator) Offset() int {
	return (p.Page() - 1) * p.pageSize
}

func (p *Paginator) Limit() int {
	return p.pageSize
}

// Row returns the navigation buttons, each bound to a fresh callback for its page
func (p *Paginator) Row(total int, viewParams map[string]any) []Button {
	controls := Paginate(total, p.pageSize, p.Page())
	if len(controls) == 0 {
		return nil
	}
	row := make([]Button, 0, len(controls))
	for _, c := range controls {
		callback := storage.NewCallback(p.vc.Route.Name)
		callback.PageNum = c.Page
		callback.ViewParams = maps.Clone(viewParams)
		row = append(row, p.vc.Button(c.Label, callback))
	}
	return row
}
