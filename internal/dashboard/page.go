package dashboard

import (
	"strings"

	"github.com/yourusername/sumo-dashboard/internal/dom"
	"golang.org/x/net/html"
)

// ParsePage parses the built-in page
func ParsePage() (*html.Node, error) {
	return dom.Parse(strings.NewReader(PageHTML))
}

// PageHTML is the browser page served next to the status endpoint. It
// carries the same contract the Go controller binds to: buttons with ids
// start and stop and one table.
const PageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>SUMO Dashboard</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 2em; color: #222; }
    button { padding: 8px 18px; margin-right: 8px; border: none; border-radius: 6px; font-weight: 600; cursor: pointer; }
    #start { background: #00b894; color: white; }
    #stop { background: #d63031; color: white; }
    table { margin-top: 1.5em; border-collapse: collapse; min-width: 320px; }
    td { padding: 4px 12px; border-bottom: 1px solid #ddd; }
    td.value { text-align: right; font-family: monospace; }
  </style>
</head>
<body>
  <h1>SUMO Dashboard</h1>
  <button id="start">Start</button>
  <button id="stop">Stop</button>
  <table></table>
  <script>
    function request(method, url, body, callback) {
      const xhr = new XMLHttpRequest();
      xhr.onreadystatechange = function () {
        if (xhr.readyState !== 4) return;
        if (xhr.status !== 200) {
          callback(null, { "client error": "status " + xhr.status, body: xhr.responseText });
          return;
        }
        try {
          callback(JSON.parse(xhr.responseText), null);
        } catch (ex) {
          callback(null, { "client error": String(ex), body: xhr.responseText });
        }
      };
      xhr.onerror = function () { callback(null, { "client error": "network error" }); };
      xhr.open(method, url, true);
      if (body !== undefined) xhr.setRequestHeader("Content-Type", "application/json");
      xhr.send(body === undefined ? null : JSON.stringify(body));
    }

    function dom(tag, attributes, ...children) {
      const node = document.createElement(tag || "h1");
      for (const key of Object.keys(attributes || {}).sort()) node.setAttribute(key, attributes[key]);
      for (const child of children) node.appendChild(typeof child === "string" ? document.createTextNode(child) : child);
      return node;
    }

    function format(v) {
      if (typeof v === "number") return v.toFixed(2);
      if (typeof v === "string") return v;
      return JSON.stringify(v);
    }

    window.onload = function () {
      for (const id of ["start", "stop"]) {
        document.getElementById(id).addEventListener("click", function () {
          request("POST", "/api", { cmd: id }, function (res, err) { console.log(res || err); });
        });
      }

      const table = document.getElementsByTagName("TABLE")[0];
      let nextSeq = 0, appliedSeq = 0;
      setInterval(function () {
        const seq = ++nextSeq;
        request("GET", "/sumo", undefined, function (res, err) {
          if (err) { console.log(err); return; }
          if (seq <= appliedSeq) return;
          appliedSeq = seq;
          table.replaceChildren();
          for (const key of Object.keys(res)) {
            table.appendChild(dom("tr", {}, dom("td", {}, key), dom("td", { "class": "value" }, format(res[key]))));
          }
        });
      }, 1000);
    };
  </script>
</body>
</html>
`
