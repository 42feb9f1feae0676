package report

// PageTemplate wraps the rendered markdown report in a standalone page.
const PageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --orange: #ea580c;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 8px; color: var(--accent); }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  p { margin: 6px 0; }
  ul { margin: 6px 0 6px 20px; }
  table { width: 100%; border-collapse: collapse; margin: 12px 0; font-size: 0.9rem; }
  th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid var(--border); }
  th { background: var(--section-bg); font-weight: 600; }
  blockquote {
    margin: 12px 0;
    padding: 8px 14px;
    border-left: 4px solid var(--accent);
    background: var(--section-bg);
  }
  .verdict-strong_buy blockquote { border-color: var(--green); }
  .verdict-hold blockquote { border-color: var(--orange); }
  .verdict-avoid blockquote { border-color: var(--red); }
  .charts { display: flex; flex-wrap: wrap; gap: 16px; align-items: flex-start; margin: 12px 0; }
  .charts svg { max-width: 100%; height: auto; }
  .footer { margin-top: 32px; color: var(--muted); font-size: 0.8rem; border-top: 1px solid var(--border); padding-top: 8px; }
</style>
</head>
<body class="verdict-{{.Tier}}">
{{.Body}}
<h2>Charts</h2>
<div class="charts">
  {{.Charts.Gauge}}
  {{.Charts.Points}}
  {{if .Charts.Price}}{{.Charts.Price}}{{end}}
</div>
<div class="footer">
  Generated {{.GeneratedAt}}{{if .Author}} by {{.Author}}{{end}}.
  Educational use only. Not financial advice.
</div>
</body>
</html>
`
