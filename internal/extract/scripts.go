package extract

import "fmt"

// harvestScript walks the live DOM and returns page-image URLs in first-seen
// order: currentSrc, src, the widest srcset entry, picture sources, and
// computed background-image urls. URLs are absolutized by the browser.
const harvestScript = `(() => {
	const out = [];
	const seen = new Set();
	const push = (u) => {
		if (!u) return;
		try { u = new URL(u, location.href).href; } catch (e) { return; }
		if (u.startsWith('data:') || u.startsWith('javascript:')) return;
		if (seen.has(u)) return;
		seen.add(u);
		out.push(u);
	};
	const widestSrcset = (ss) => {
		let best = '', bestW = -1;
		for (const part of (ss || '').split(',')) {
			const fields = part.trim().split(/\s+/);
			if (!fields[0]) continue;
			let w = 0;
			if (fields[1] && fields[1].endsWith('w')) w = parseInt(fields[1], 10) || 0;
			if (w >= bestW) { bestW = w; best = fields[0]; }
		}
		return best;
	};
	for (const img of document.querySelectorAll('img')) {
		if (img.srcset) push(widestSrcset(img.srcset));
		push(img.currentSrc);
		push(img.src);
	}
	for (const s of document.querySelectorAll('source')) {
		if (s.srcset) push(widestSrcset(s.srcset));
		if (s.src) push(s.src);
	}
	for (const el of document.querySelectorAll('*')) {
		const bg = getComputedStyle(el).backgroundImage;
		if (!bg || bg === 'none') continue;
		for (const m of bg.matchAll(/url\((["']?)([^"')]+)\1\)/g)) push(m[2]);
	}
	return out;
})()`

// shadowHarvestScript is the novel-path variant: it recurses through open
// shadow roots and filters by min(displayed, natural) width.
func shadowHarvestScript(minWidth int) string {
	return fmt.Sprintf(`(() => {
	const minW = %d;
	const out = [];
	const seen = new Set();
	const push = (u, w) => {
		if (!u) return;
		try { u = new URL(u, location.href).href; } catch (e) { return; }
		if (u.startsWith('data:') || u.startsWith('javascript:')) return;
		if (minW > 0 && w > 0 && w < minW) return;
		if (seen.has(u)) return;
		seen.add(u);
		out.push(u);
	};
	const widestSrcset = (ss) => {
		let best = '', bestW = -1;
		for (const part of (ss || '').split(',')) {
			const fields = part.trim().split(/\s+/);
			if (!fields[0]) continue;
			let w = 0;
			if (fields[1] && fields[1].endsWith('w')) w = parseInt(fields[1], 10) || 0;
			if (w >= bestW) { bestW = w; best = fields[0]; }
		}
		return best;
	};
	const visit = (root) => {
		for (const img of root.querySelectorAll('img')) {
			const w = Math.min(img.getBoundingClientRect().width || img.naturalWidth,
				img.naturalWidth || img.getBoundingClientRect().width);
			if (img.srcset) push(widestSrcset(img.srcset), w);
			push(img.currentSrc, w);
			push(img.src, w);
		}
		for (const el of root.querySelectorAll('*')) {
			if (el.shadowRoot) visit(el.shadowRoot);
			const bg = getComputedStyle(el).backgroundImage;
			if (!bg || bg === 'none') continue;
			const w = el.getBoundingClientRect().width;
			for (const m of bg.matchAll(/url\((["']?)([^"')]+)\1\)/g)) push(m[2], w);
		}
	};
	visit(document);
	return out;
})()`, minWidth)
}

// scrollStepScript advances the main scroller by ~0.95 viewport heights and
// reports the current scrollHeight.
const scrollStepScript = `(() => {
	const el = document.scrollingElement || document.documentElement;
	el.scrollTop = el.scrollTop + Math.floor(window.innerHeight * 0.95);
	return el.scrollHeight;
})()`

// detectTextViewerScript inspects __NEXT_DATA__ for the text/EPUB viewer
// markers.
const detectTextViewerScript = `(() => {
	const el = document.getElementById('__NEXT_DATA__');
	if (!el) return false;
	const t = el.textContent || '';
	return t.includes('"singleIsTextViewer":true') || t.includes('"singleSlideType":"EPUB"');
})()`

// eagerScript force-eagers lazy assets: loading=eager, data-src and widest
// srcset promoted to src, data-bg* reconstructed, then resize/scroll events
// to wake observers.
const eagerScript = `(() => {
	const widestSrcset = (ss) => {
		let best = '', bestW = -1;
		for (const part of (ss || '').split(',')) {
			const fields = part.trim().split(/\s+/);
			if (!fields[0]) continue;
			let w = 0;
			if (fields[1] && fields[1].endsWith('w')) w = parseInt(fields[1], 10) || 0;
			if (w >= bestW) { bestW = w; best = fields[0]; }
		}
		return best;
	};
	for (const img of document.querySelectorAll('img')) {
		img.loading = 'eager';
		const ds = img.getAttribute('data-src');
		if (ds && !img.src) img.src = ds;
		if (img.srcset) {
			const best = widestSrcset(img.srcset);
			if (best) img.src = best;
		}
	}
	for (const el of document.querySelectorAll('*')) {
		for (const a of el.attributes || []) {
			if (a.name.startsWith('data-bg') && a.value) {
				el.style.backgroundImage = 'url("' + a.value + '")';
				break;
			}
		}
	}
	window.dispatchEvent(new Event('resize'));
	window.dispatchEvent(new Event('scroll'));
	return true;
})()`

// unlockScrollScript clears overflow restrictions and hides fullscreen
// overlays (fixed/sticky, z-index >= 1000, covering >= 80%% of the
// viewport).
const unlockScrollScript = `(() => {
	document.documentElement.style.overflow = 'visible';
	if (document.body) document.body.style.overflow = 'visible';
	const vw = window.innerWidth, vh = window.innerHeight;
	for (const el of document.querySelectorAll('*')) {
		const cs = getComputedStyle(el);
		if (cs.position !== 'fixed' && cs.position !== 'sticky') continue;
		const z = parseInt(cs.zIndex, 10);
		if (isNaN(z) || z < 1000) continue;
		const r = el.getBoundingClientRect();
		if (r.width * r.height >= 0.8 * vw * vh) {
			el.style.display = 'none';
		}
	}
	return true;
})()`

// progressScript reads the viewer progress bar percent; -1 when the bar is
// not found or unparsable.
const progressScript = `(() => {
	const bar = document.querySelector('div.relative.h-full.bg-el-70');
	if (!bar) return -1;
	const m = (bar.getAttribute('style') || '').match(/width:\s*([0-9.]+)%/);
	if (!m) return -1;
	return parseFloat(m[1]);
})()`

// seekScript clicks the progress bar at the given fraction of its width.
func seekScript(fraction float64) string {
	return fmt.Sprintf(`(() => {
	const bar = document.querySelector('div.relative.h-full.bg-el-70');
	if (!bar || !bar.parentElement) return false;
	const track = bar.parentElement;
	const r = track.getBoundingClientRect();
	if (r.width === 0) return false;
	const x = r.left + r.width * %f;
	const y = r.top + r.height / 2;
	for (const type of ['pointerdown', 'mousedown', 'pointerup', 'mouseup', 'click']) {
		track.dispatchEvent(new MouseEvent(type, {
			bubbles: true, cancelable: true, clientX: x, clientY: y, view: window
		}));
	}
	return true;
})()`, fraction)
}

// topIconScript presses the viewer's jump-to-top icon.
const topIconScript = `(() => {
	for (const el of document.querySelectorAll('button, [role="button"]')) {
		const aria = (el.getAttribute('aria-label') || '').toLowerCase();
		if (aria.includes('top') || aria.includes('처음')) {
			el.click();
			return true;
		}
	}
	return false;
})()`

// nextArrowScript clicks the toolbar arrow whose SVG data URL carries the
// stable clip-path id used by the reader build.
const nextArrowScript = `(() => {
	for (const img of document.querySelectorAll('img, svg, use')) {
		const src = img.getAttribute('src') || img.getAttribute('href') || '';
		if (src.startsWith('data:image/svg') && src.includes('clip-path')) {
			const btn = img.closest('button, [role="button"]');
			if (btn) {
				const r = btn.getBoundingClientRect();
				if (r.width > 0 && r.height > 0 && r.left > window.innerWidth / 2) {
					btn.click();
					return true;
				}
			}
		}
	}
	return false;
})()`

// userActivationScript synthesizes a user gesture: some lazy loaders only
// fire after real-looking input.
const userActivationScript = `(() => {
	const cx = Math.floor(window.innerWidth / 2);
	const cy = Math.floor(window.innerHeight / 2);
	const target = document.elementFromPoint(cx, cy) || document.body;
	if (!target) return false;
	target.dispatchEvent(new WheelEvent('wheel', { bubbles: true, deltaY: 1, clientX: cx, clientY: cy }));
	for (const type of ['pointerdown', 'mousedown', 'pointerup', 'mouseup']) {
		target.dispatchEvent(new MouseEvent(type, {
			bubbles: true, cancelable: true, clientX: cx, clientY: cy, view: window
		}));
	}
	return true;
})()`

// chunkTextScript extracts the best text root of the current viewer page as
// {html, text}. Candidates are scored by paragraph richness, penalized for
// comment/rating/sidebar keywords, button density and off-viewport
// placement. Pseudo-element string content is materialized, CSS-hidden and
// transparent nodes dropped, 32+ hex-digit garbage runs removed, and
// srcset images normalized to src.
const chunkTextScript = `(() => {
	const BAD = ['댓글', 'comment', 'rating', '별점', 'sidebar', 'reply', '리뷰'];
	const candidates = [];
	for (const el of document.querySelectorAll('div, section, article, main')) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		const text = el.innerText || '';
		if (text.length < 20) continue;
		let score = 0;
		score += el.querySelectorAll('p').length * 5;
		score += el.querySelectorAll('br').length * 2;
		score += el.querySelectorAll('h1,h2,h3,h4,h5,h6').length * 3;
		score += Math.min(text.length / 100, 50);
		const cls = ((el.className || '') + ' ' + (el.id || '')).toLowerCase();
		for (const bad of BAD) {
			if (cls.includes(bad) || text.slice(0, 200).toLowerCase().includes(bad)) score -= 40;
		}
		score -= el.querySelectorAll('button').length * 4;
		if (r.bottom < 0 || r.top > window.innerHeight) score -= 30;
		candidates.push([score, el]);
	}
	if (candidates.length === 0) return { html: '', text: '' };
	candidates.sort((a, b) => b[0] - a[0]);
	const root = candidates[0][1];

	const clone = root.cloneNode(true);
	const pairs = [[root, clone]];
	while (pairs.length) {
		const [orig, copy] = pairs.pop();
		const oc = orig.children, cc = copy.children;
		for (let i = 0; i < oc.length; i++) {
			const cs = getComputedStyle(oc[i]);
			if (cs.display === 'none' || cs.visibility === 'hidden' || cs.opacity === '0' ||
				cs.color === 'transparent' || cs.color === 'rgba(0, 0, 0, 0)') {
				cc[i].setAttribute('data-drop', '1');
				continue;
			}
			const before = getComputedStyle(oc[i], '::before').content;
			const after = getComputedStyle(oc[i], '::after').content;
			if (before && before !== 'none' && before !== 'normal') {
				cc[i].insertAdjacentText('afterbegin', before.replace(/^"|"$/g, ''));
			}
			if (after && after !== 'none' && after !== 'normal') {
				cc[i].insertAdjacentText('beforeend', after.replace(/^"|"$/g, ''));
			}
			pairs.push([oc[i], cc[i]]);
		}
	}
	for (const el of clone.querySelectorAll('[data-drop]')) el.remove();
	for (const img of clone.querySelectorAll('img[srcset]')) {
		const first = (img.getAttribute('srcset') || '').split(',')[0].trim().split(/\s+/)[0];
		if (first) img.setAttribute('src', first);
		img.removeAttribute('srcset');
	}

	const strip = (s) => s.replace(/[0-9a-fA-F]{32,}/g, '');
	return { html: strip(clone.innerHTML || ''), text: strip(clone.innerText || root.innerText || '') };
})()`

// textFrameScript returns the index of the iframe with the most visible
// text, or -1 when the main document is the text root.
const textFrameScript = `(() => {
	let best = -1, bestLen = 0;
	const frames = document.querySelectorAll('iframe');
	for (let i = 0; i < frames.length; i++) {
		try {
			const doc = frames[i].contentDocument;
			if (!doc || !doc.body) continue;
			const len = (doc.body.innerText || '').length;
			if (len > bestLen) { bestLen = len; best = i; }
		} catch (e) {}
	}
	return best;
})()`
