package sandbox

import "fmt"

// ScriptPath is where the execution server script is placed inside the
// container.
const ScriptPath = "/tmp/indocker_server.py"

// serverScript is the execution server launched inside the container. It
// is parameterized only by the listen port. Two call forms are served:
// a JSON body carrying bare function source (reference form) and a CBOR
// body carrying a full rehomed namespace (by-value form). Results always
// come back as a JSON envelope so the host can tell remote assertion
// failures from protocol failures.
const serverScript = `import importlib
import json
import traceback
from http.server import BaseHTTPRequestHandler, ThreadingHTTPServer

try:
    import cbor2
except ImportError:
    cbor2 = None


def _failure(exc):
    return {
        "ok": False,
        "error": {
            "type": type(exc).__name__,
            "message": str(exc),
            "assertion": isinstance(exc, AssertionError),
            "traceback": traceback.format_exc(),
        },
    }


def _run(fn, args, kwargs):
    try:
        return {"ok": True, "value": fn(*(args or []), **(kwargs or {}))}
    except BaseException as exc:
        return _failure(exc)


def _materialize(payload):
    ns = {"__builtins__": __builtins__, "__name__": "__mp_main__"}
    for alias, imp in (payload.get("imports") or {}).items():
        mod = importlib.import_module(imp["module"])
        ns[alias] = getattr(mod, imp["attr"]) if imp.get("attr") else mod
    for name, value in (payload.get("values") or {}).items():
        ns[name] = value
    for cls in (payload.get("classes") or []):
        exec(compile(cls["source"], "<indocker:" + cls["name"] + ">", "exec"), ns)
    for name, source in (payload.get("functions") or {}).items():
        exec(compile(source, "<indocker:" + name + ">", "exec"), ns)
    return ns


class Handler(BaseHTTPRequestHandler):
    def log_message(self, fmt, *args):
        pass

    def _reply(self, status, body):
        data = json.dumps(body, default=repr).encode("utf-8")
        self.send_response(status)
        self.send_header("Content-Type", "application/json")
        self.send_header("Content-Length", str(len(data)))
        self.end_headers()
        self.wfile.write(data)

    def do_GET(self):
        if self.path == "/health":
            self._reply(200, {"ok": True})
        else:
            self._reply(404, {"ok": False})

    def do_POST(self):
        length = int(self.headers.get("Content-Length", "0"))
        raw = self.rfile.read(length)
        try:
            if self.path == "/echo":
                self._reply(200, {"value": json.loads(raw).get("value")})
            elif self.path == "/call":
                content_type = self.headers.get("Content-Type", "")
                if content_type.startswith("application/cbor"):
                    payload = cbor2.loads(raw)
                    ns = _materialize(payload)
                    fn = ns[payload["entry"]]
                else:
                    payload = json.loads(raw)
                    ns = {}
                    exec(compile(payload["source"], "<indocker>", "exec"), ns)
                    fn = ns[payload["name"]]
                self._reply(200, _run(fn, payload.get("args"), payload.get("kwargs")))
            else:
                self._reply(404, {"ok": False})
        except BaseException as exc:
            self._reply(500, _failure(exc))


ThreadingHTTPServer(("", %d), Handler).serve_forever()
`

// ServerScript renders the execution server source for the given port.
func ServerScript(port int) string {
	return fmt.Sprintf(serverScript, port)
}
