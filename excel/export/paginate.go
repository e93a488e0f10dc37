package export

import "strconv"

// Page 一页数据的行范围 [Start, End)
type Page struct {
	Index int
	Start int
	End   int
}

// Len 页内行数
func (p Page) Len() int {
	return p.End - p.Start
}

// Paginate 按单页最大行数切分，maxRows <= 0 时不分页。
// 没有数据时也会返回一页，用来写表头
func Paginate(rowCount, maxRows int) []Page {
	if rowCount < 0 {
		rowCount = 0
	}
	if maxRows <= 0 || maxRows > rowCount {
		maxRows = rowCount
	}
	if rowCount == 0 {
		return []Page{{Index: 0, Start: 0, End: 0}}
	}
	count := (rowCount + maxRows - 1) / maxRows
	pages := make([]Page, count)
	for i := range pages {
		end := (i + 1) * maxRows
		if end > rowCount {
			end = rowCount
		}
		pages[i] = Page{Index: i, Start: i * maxRows, End: end}
	}
	return pages
}

// pageName 单页时使用前缀，多页时加上从1开始的页码
func pageName(prefix string, index, count int) string {
	if count <= 1 {
		return prefix
	}
	return prefix + strconv.Itoa(index+1)
}
