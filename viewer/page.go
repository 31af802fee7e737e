package viewer

import (
	"html/template"
	"net/http"
)

type boardCell struct {
	Class string
	Glyph string
}

type boardPage struct {
	Live  bool
	Seq   int64
	Sent  string
	Rows  [][]boardCell
	Lines []string
}

var boardTmpl = template.Must(template.New("board").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>snek8</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; }
table#grid { border-collapse: collapse; border: 2px solid #888; }
table#grid td { width: 24px; height: 24px; text-align: center; }
td.head { background: #3c3; color: #000; }
td.body { background: #181; }
td.food { background: #c33; }
</style>
</head>
<body>
<h1>snek8</h1>
{{if .Live}}
<p>frame <span id="seq">{{.Seq}}</span> at <span id="sent">{{.Sent}}</span></p>
<table id="grid">
{{range .Rows}}<tr>{{range .}}<td class="{{.Class}}">{{.Glyph}}</td>{{end}}</tr>
{{end}}</table>
<pre id="board">{{range .Lines}}{{.}}
{{end}}</pre>
{{else}}
<p id="waiting">waiting for the first frame</p>
<pre id="board"></pre>
{{end}}
<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (ev) {
    var f = JSON.parse(ev.data);
    var lines = ["+--------+"];
    f.rows.forEach(function (r) { lines.push("|" + r + "|"); });
    lines.push("+--------+");
    document.getElementById("board").textContent = lines.join("\n");
    var seq = document.getElementById("seq");
    if (seq) { seq.textContent = f.seq; }
  };
})();
</script>
</body>
</html>
`))

func cellClass(glyph byte) string {
	switch glyph {
	case 'H':
		return "head"
	case 'O':
		return "body"
	case '*':
		return "food"
	default:
		return "empty"
	}
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	var page boardPage
	if s.cfg.Hub != nil {
		if f, ok := s.cfg.Hub.Last(); ok {
			page.Live = true
			page.Seq = f.Seq
			page.Sent = f.Sent.UTC().Format("15:04:05.000")
			page.Lines = append(page.Lines, "+--------+")
			for _, row := range f.Rows {
				cells := make([]boardCell, 0, len(row))
				for i := 0; i < len(row); i++ {
					cells = append(cells, boardCell{Class: cellClass(row[i]), Glyph: string(row[i])})
				}
				page.Rows = append(page.Rows, cells)
				page.Lines = append(page.Lines, "|"+row+"|")
			}
			page.Lines = append(page.Lines, "+--------+")
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := boardTmpl.Execute(w, page); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
